package save

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"ntwtf.ai/internal/catalogs"
	"ntwtf.ai/internal/persistence/archive"
	"ntwtf.ai/internal/persistence/indexdb"
	plog "ntwtf.ai/internal/persistence/log"
	"ntwtf.ai/internal/persistence/luadb"
	"ntwtf.ai/internal/persistence/rawjson"
	"ntwtf.ai/internal/persistence/snapshot"
)

var ErrPathMismatch = errors.New("save: update is for a different save than the one loaded")

type Options struct {
	Catalogs          *catalogs.Catalogs
	Probes            []rawjson.Style
	WhiteCheckTables  []string
	BackupGenerations int

	// Optional. Nil disables the hook.
	Snapshots *snapshot.Store
	Audit     *plog.AuditLogger
	Index     *indexdb.SQLiteIndex
	Logger    *log.Logger
}

// Session holds at most one loaded save. Every operation takes the one
// session lock for its whole duration.
type Session struct {
	mu sync.Mutex

	id      string
	cat     *catalogs.Catalogs
	prober  *rawjson.Prober
	patcher *Patcher
	backups int

	snaps  *snapshot.Store
	audit  *plog.AuditLogger
	index  *indexdb.SQLiteIndex
	logger *log.Logger

	cur *Loaded

	now func() time.Time
}

func NewSession(opts Options) *Session {
	cat := opts.Catalogs
	if cat == nil {
		cat = catalogs.Default()
	}
	prober := rawjson.NewProber(opts.Probes)
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[save] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Session{
		id:      uuid.NewString(),
		cat:     cat,
		prober:  prober,
		patcher: NewPatcher(prober, opts.WhiteCheckTables),
		backups: opts.BackupGenerations,
		snaps:   opts.Snapshots,
		audit:   opts.Audit,
		index:   opts.Index,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Catalogs() *catalogs.Catalogs { return s.cat }

// Load replaces the session's save with the one at path.
func (s *Session) Load(path string) (FullState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := LoadPath(path, s.cat, s.prober)
	if err != nil {
		s.record(opRecord{op: "load", path: path, err: err})
		return FullState{}, err
	}
	s.cur = l
	s.record(opRecord{op: "load", loc: l.Location, bytes: l.Original.Size()})
	return Project(l, s.cat), nil
}

// State re-projects the loaded save.
func (s *Session) State() (FullState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return FullState{}, ErrNoSession
	}
	return Project(s.cur, s.cat), nil
}

// Query lists flat database variables whose key contains q, case-folded,
// sorted by key, at most limit when limit > 0.
func (s *Session) Query(q string, limit int) ([]Variable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil, ErrNoSession
	}
	vars := luadb.Query(s.cur.DB, q, limit)
	out := make([]Variable, len(vars))
	for i, v := range vars {
		out[i] = Variable{Variable: v, Description: s.cat.VariableDescription(v.Key)}
	}
	return out, nil
}

// Variable is a flat database leaf with its catalog description.
type Variable struct {
	luadb.Variable
	Description string `json:"description"`
}

// SaveResult reports what a Save or Restore wrote.
type SaveResult struct {
	Backup     string    `json:"backup,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Coerced    []string  `json:"coerced,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	State      FullState `json:"state"`
}

// Save merges u into the loaded save and writes it back: restore point,
// backup rotation, then the atomic write. The session only moves to the new
// state once the write succeeded.
func (s *Session) Save(u Update) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return SaveResult{}, ErrNoSession
	}
	loc := s.cur.Location
	if u.FolderPath != "" && !samePath(u.FolderPath, loc.Path) {
		return SaveResult{}, fmt.Errorf("%w: %s", ErrPathMismatch, u.FolderPath)
	}

	work := s.cur.Clone()
	out, err := s.patcher.Apply(work, u)
	if err != nil {
		s.record(opRecord{op: "save", loc: loc, err: err})
		return SaveResult{}, err
	}
	if len(out.Coerced) > 0 {
		s.logger.Printf("session %s: coerced database edits: %v", s.id, out.Coerced)
	}

	res, err := s.write(loc, s.cur.Original, out.Bundle, "save")
	res.Coerced = out.Coerced
	res.Fields = out.Fields
	s.record(opRecord{op: "save", loc: loc, res: res, bytes: out.Bundle.Size(), err: err})
	if err != nil {
		return res, err
	}

	s.cur = s.reload(loc, work)
	res.State = Project(s.cur, s.cat)
	return res, nil
}

// Snapshots lists the restore points of the loaded save, newest first.
func (s *Session) Snapshots() ([]snapshot.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil, ErrNoSession
	}
	if s.snaps == nil {
		return nil, nil
	}
	return s.snaps.List(s.cur.Location.Base)
}

// Restore writes the payloads of a restore point back over the save at path
// and loads the result. id may be any unambiguous prefix.
func (s *Session) Restore(path, id string) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snaps == nil {
		return SaveResult{}, fmt.Errorf("save: restore points are disabled")
	}
	loc, err := archive.Locate(path)
	if err != nil {
		return SaveResult{}, err
	}
	snap, err := s.snaps.Find(loc.Base, id)
	if err != nil {
		return SaveResult{}, err
	}
	current, err := archive.Read(loc)
	if err != nil {
		return SaveResult{}, err
	}

	b := snap.Bundle()
	res, err := s.write(loc, current, b, "restore")
	s.record(opRecord{op: "restore", loc: loc, res: res, bytes: b.Size(), err: err})
	if err != nil {
		return res, err
	}
	l, err := LoadPath(loc.Path, s.cat, s.prober)
	if err != nil {
		return res, err
	}
	s.cur = l
	res.State = Project(l, s.cat)
	return res, nil
}

// write captures before as a restore point, rotates backups and writes b.
// Only the backup copy and the write itself can fail the operation.
func (s *Session) write(loc archive.Location, before, b *archive.Bundle, reason string) (SaveResult, error) {
	var res SaveResult
	if s.snaps != nil && before != nil {
		res.SnapshotID = s.snapshot(loc, before, reason)
	}
	rot, err := archive.RotateBackups(loc, s.backups)
	for _, w := range rot.Warnings {
		s.logger.Printf("session %s: backup cleanup: %v", s.id, w)
	}
	if err != nil {
		return res, err
	}
	res.Backup = rot.Backup
	if err := archive.Write(loc, b); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Session) snapshot(loc archive.Location, b *archive.Bundle, reason string) string {
	h := snapshot.Header{
		ID:        uuid.NewString(),
		SavePath:  loc.Path,
		Kind:      loc.Kind.String(),
		Reason:    reason,
		CreatedAt: s.now().UTC(),
	}
	snap := snapshot.FromBundle(h, b)
	file, err := s.snaps.Put(snap)
	if err != nil {
		s.logger.Printf("session %s: snapshot %s: %v", s.id, loc.Path, err)
		if file == "" {
			return ""
		}
	}
	s.index.RecordSnapshot(indexdb.Snapshot{
		ID:        snap.Header.ID,
		SavePath:  loc.Path,
		BaseName:  loc.Base,
		File:      file,
		Reason:    reason,
		CreatedAt: snap.Header.CreatedAt,
		Size:      snap.Header.Size,
	})
	return snap.Header.ID
}

// reload reads back what was just written so the session matches the disk.
// If that fails the patched in-memory state is kept.
func (s *Session) reload(loc archive.Location, patched *Loaded) *Loaded {
	b, err := archive.Read(loc)
	if err == nil {
		var l *Loaded
		if l, err = LoadBundle(loc, b, s.cat, s.prober); err == nil {
			return l
		}
	}
	s.logger.Printf("session %s: reload %s: %v", s.id, loc.Path, err)
	return patched
}

type opRecord struct {
	op    string
	path  string
	loc   archive.Location
	res   SaveResult
	bytes int64
	err   error
}

// record writes the audit entry and index event for one operation. Both are
// best-effort.
func (s *Session) record(r opRecord) {
	if s.audit == nil && s.index == nil {
		return
	}
	path := r.loc.Path
	if path == "" {
		path = r.path
	}
	var errText string
	if r.err != nil {
		errText = r.err.Error()
	}
	id := uuid.NewString()
	ts := s.now().UTC()

	if s.audit != nil {
		err := s.audit.WriteAudit(plog.AuditEntry{
			ID:         id,
			Time:       ts,
			Op:         r.op,
			SessionID:  s.id,
			SavePath:   path,
			BaseName:   r.loc.Base,
			SnapshotID: r.res.SnapshotID,
			Backup:     r.res.Backup,
			Fields:     r.res.Fields,
			Bytes:      r.bytes,
			Error:      errText,
		})
		if err != nil {
			s.logger.Printf("session %s: audit: %v", s.id, err)
		}
	}
	s.index.RecordEvent(indexdb.Event{
		ID:         id,
		Time:       ts,
		SessionID:  s.id,
		Op:         r.op,
		SavePath:   path,
		BaseName:   r.loc.Base,
		Kind:       r.loc.Kind.String(),
		Fields:     r.res.Fields,
		SnapshotID: r.res.SnapshotID,
		Backup:     r.res.Backup,
		Error:      errText,
	})
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}
