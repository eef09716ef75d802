package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"

	TypeDiscover  = "DISCOVER"
	TypeLoad      = "LOAD"
	TypeState     = "STATE"
	TypeSave      = "SAVE"
	TypeQuery     = "QUERY"
	TypeSnapshots = "SNAPSHOTS"
	TypeRestore   = "RESTORE"

	TypeResult = "RESULT"
	TypeError  = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// IsCommand reports whether typ is a request a client may send after HELLO.
func IsCommand(typ string) bool {
	switch typ {
	case TypeDiscover, TypeLoad, TypeState, TypeSave, TypeQuery, TypeSnapshots, TypeRestore:
		return true
	}
	return false
}
