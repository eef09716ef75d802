package luadb

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for unknown tags, truncated buffers, invalid
	// UTF-8 text and impossible table counts.
	ErrMalformed = errors.New("luadb: malformed value")

	// ErrUnparseable is returned by DecodeDatabase when no table could be
	// recovered from a non-empty stream.
	ErrUnparseable = errors.New("luadb: unparseable database")
)

// DecodeError records where in the stream decoding failed.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("luadb: malformed value at offset %d: %s", e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrMalformed }

func malformed(off int, format string, args ...any) error {
	return &DecodeError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}
