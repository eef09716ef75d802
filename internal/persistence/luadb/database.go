package luadb

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Database is the merged top-level mapping of a `.ntwtf.lua` payload.
type Database = Table

// DecodeDatabase reads a stream of zero or more top-level tables and merges
// their entries, later tables overriding earlier ones.
//
// Save files occasionally carry a corrupt trailing frame. When a value fails
// to decode, decoding restarts one byte after where that attempt began, until
// the stream is exhausted. Errors are dropped as long as at least one table
// was recovered; otherwise ErrUnparseable is returned. Non-table values that
// happen to decode are skipped.
func DecodeDatabase(b []byte) (*Database, error) {
	db := NewTable()
	if len(b) == 0 {
		return db, nil
	}

	var (
		off       int
		recovered int
		lastErr   error
	)
	for off < len(b) {
		d := decoder{buf: b, off: off}
		v, err := d.value()
		if err != nil {
			lastErr = err
			off++
			continue
		}
		if t, ok := v.(*Table); ok {
			db.Merge(t)
			recovered++
		}
		off = d.off
	}
	if recovered == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, lastErr)
		}
		return nil, fmt.Errorf("%w: no table frames", ErrUnparseable)
	}
	return db, nil
}

// EncodeDatabase writes db as a single top-level table frame.
func EncodeDatabase(db *Database) ([]byte, error) {
	if db == nil {
		db = NewTable()
	}
	return Encode(db)
}

func ReadDatabaseFile(path string) (*Database, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeDatabase(b)
}

// Variable is one leaf of the flat database view.
type Variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"var_type"`
}

// Query returns flattened leaves whose path contains query, compared with
// Unicode case folding. Results are sorted by key and capped at limit when
// limit > 0. An empty query matches everything.
func Query(db *Database, query string, limit int) []Variable {
	fold := cases.Fold()
	q := fold.String(query)

	flat := Flatten(db, "")
	keys := make([]string, 0, len(flat))
	for k := range flat {
		if q == "" || strings.Contains(fold.String(k), q) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}

	out := make([]Variable, 0, len(keys))
	for _, k := range keys {
		v := flat[k]
		out = append(out, Variable{Key: k, Value: v.String(), Type: v.Kind().String()})
	}
	return out
}
