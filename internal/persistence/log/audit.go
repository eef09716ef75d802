package log

import (
	"encoding/json"
	"path/filepath"
	"time"
)

// AuditEntry records one operation against a save.
type AuditEntry struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"ts"`
	Op         string    `json:"op"`
	SessionID  string    `json:"session_id,omitempty"`
	SavePath   string    `json:"save_path"`
	BaseName   string    `json:"base_name,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Backup     string    `json:"backup,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// AuditLogger writes audit entries under `<dataDir>/audit`.
type AuditLogger struct {
	dir string
	w   *JSONLZstdWriter
}

func NewAuditLogger(dataDir string) *AuditLogger {
	dir := filepath.Join(dataDir, "audit")
	return &AuditLogger{dir: dir, w: NewJSONLZstdWriter(dir, "audit")}
}

func (l *AuditLogger) WriteAudit(e AuditEntry) error { return l.w.Write(e) }
func (l *AuditLogger) Close() error                  { return l.w.Close() }

// ReadAudit returns every entry for savePath, or all entries when savePath is
// empty, oldest first.
func (l *AuditLogger) ReadAudit(savePath string) ([]AuditEntry, error) {
	var out []AuditEntry
	err := ReadJSONL(l.dir, "audit", func(line []byte) error {
		var e AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil
		}
		if savePath == "" || e.SavePath == savePath {
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
