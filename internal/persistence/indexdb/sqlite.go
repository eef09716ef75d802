// Package indexdb keeps a queryable sqlite index of saves the editor has
// touched, their load/save history and their restore points. The audit log
// and snapshot files remain the source of truth; the index may drop writes
// under pressure.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvent    atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	event    Event
	snapshot Snapshot
	done     chan struct{}
}

// Event is one load, save or restore of a save.
type Event struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"ts"`
	SessionID  string    `json:"session_id,omitempty"`
	Op         string    `json:"op"`
	SavePath   string    `json:"save_path"`
	BaseName   string    `json:"base_name"`
	Kind       string    `json:"kind"`
	Fields     []string  `json:"fields,omitempty"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	Backup     string    `json:"backup,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Snapshot is a restore point written for a save.
type Snapshot struct {
	ID        string    `json:"id"`
	SavePath  string    `json:"save_path"`
	BaseName  string    `json:"base_name"`
	File      string    `json:"file"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// SaveRow aggregates the history of one save path.
type SaveRow struct {
	Path       string    `json:"path"`
	BaseName   string    `json:"base_name"`
	Kind       string    `json:"kind"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	LoadCount  int       `json:"load_count"`
	SaveCount  int       `json:"save_count"`
	ErrorCount int       `json:"error_count"`
}

type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropEventTotal    uint64 `json:"drop_event_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			path TEXT PRIMARY KEY,
			base_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			load_count INTEGER NOT NULL DEFAULT 0,
			save_count INTEGER NOT NULL DEFAULT 0,
			error_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			session_id TEXT,
			op TEXT NOT NULL,
			save_path TEXT NOT NULL,
			fields_json TEXT,
			snapshot_id TEXT,
			backup TEXT,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_path_ts ON events(save_path, ts);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			save_path TEXT NOT NULL,
			base_name TEXT NOT NULL,
			file TEXT NOT NULL,
			reason TEXT NOT NULL,
			created_at TEXT NOT NULL,
			size INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_path ON snapshots(save_path, created_at);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordEvent(e Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvent.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(sn Snapshot) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: sn}:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropEventTotal:    s.dropEvent.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// Sync waits until everything queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		var err error
		switch r.kind {
		case reqEvent:
			err = writeEvent(tx, r.event)
		case reqSnapshot:
			err = writeSnapshot(tx, r.snapshot)
		}
		if err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

func writeEvent(tx *sql.Tx, e Event) error {
	ts := e.Time.UTC().Format(time.RFC3339Nano)
	var fields any
	if len(e.Fields) > 0 {
		b, _ := json.Marshal(e.Fields)
		fields = string(b)
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO events(id,ts,session_id,op,save_path,fields_json,snapshot_id,backup,error) VALUES(?,?,?,?,?,?,?,?,?)`,
		e.ID, ts, e.SessionID, e.Op, e.SavePath, fields, e.SnapshotID, e.Backup, e.Error,
	); err != nil {
		return err
	}
	var loads, saves, errs int
	switch {
	case e.Error != "":
		errs = 1
	case e.Op == "load":
		loads = 1
	default:
		saves = 1
	}
	_, err := tx.Exec(
		`INSERT INTO saves(path,base_name,kind,first_seen,last_seen,load_count,save_count,error_count) VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET
			last_seen=excluded.last_seen,
			load_count=load_count+excluded.load_count,
			save_count=save_count+excluded.save_count,
			error_count=error_count+excluded.error_count`,
		e.SavePath, e.BaseName, e.Kind, ts, ts, loads, saves, errs,
	)
	return err
}

func writeSnapshot(tx *sql.Tx, sn Snapshot) error {
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO snapshots(id,save_path,base_name,file,reason,created_at,size) VALUES(?,?,?,?,?,?,?)`,
		sn.ID, sn.SavePath, sn.BaseName, sn.File, sn.Reason, sn.CreatedAt.UTC().Format(time.RFC3339Nano), sn.Size,
	)
	return err
}
