package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrNoSession  = "E_NO_SESSION"
	ErrSchema     = "E_SCHEMA"
	ErrNotFound   = "E_NOT_FOUND"
	ErrConflict   = "E_CONFLICT"
	ErrIO         = "E_IO"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrNoSession:       {},
	ErrSchema:          {},
	ErrNotFound:        {},
	ErrConflict:        {},
	ErrIO:              {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
