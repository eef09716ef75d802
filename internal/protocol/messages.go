package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

// CatalogDigests maps catalog file name to its sha256 hex digest.
type CatalogDigests map[string]string

type DiscoverMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
}

type LoadMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Path            string `json:"path"`
}

type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
}

// SaveMsg carries the edited fields. Update is decoded by the session layer
// after it passed ValidateSaveRequest.
type SaveMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id,omitempty"`
	Update          json.RawMessage `json:"update"`
}

type QueryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Query           string `json:"query"`
	Limit           int    `json:"limit,omitempty"`
}

type SnapshotsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
}

type RestoreMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	Path            string `json:"path"`
	SnapshotID      string `json:"snapshot_id"`
}

// RESULT (server -> client): the answer to the command with the same id.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	For             string `json:"for"`
	Data            any    `json:"data"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id,omitempty"`
	For             string `json:"for,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewResult(id, forType string, data any) ResultMsg {
	return ResultMsg{Type: TypeResult, ProtocolVersion: Version, ID: id, For: forType, Data: data}
}

func NewError(id, forType, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ID: id, For: forType, Code: code, Message: msg}
}
