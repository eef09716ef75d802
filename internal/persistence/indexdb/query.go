package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Saves lists indexed saves, most recently touched first.
func (s *SQLiteIndex) Saves(ctx context.Context) ([]SaveRow, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path,base_name,kind,first_seen,last_seen,load_count,save_count,error_count FROM saves ORDER BY last_seen DESC, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		var first, last string
		if err := rows.Scan(&r.Path, &r.BaseName, &r.Kind, &first, &last, &r.LoadCount, &r.SaveCount, &r.ErrorCount); err != nil {
			return nil, err
		}
		r.FirstSeen = parseTime(first)
		r.LastSeen = parseTime(last)
		out = append(out, r)
	}
	return out, rows.Err()
}

// History returns events for savePath, newest first. limit <= 0 means all.
func (s *SQLiteIndex) History(ctx context.Context, savePath string, limit int) ([]Event, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id,e.ts,e.session_id,e.op,e.save_path,s.base_name,s.kind,e.fields_json,e.snapshot_id,e.backup,e.error
		FROM events e LEFT JOIN saves s ON s.path = e.save_path
		WHERE e.save_path = ? ORDER BY e.ts DESC LIMIT ?`, savePath, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                                         Event
			ts                                        string
			session, base, kind, fields, snap, backup sql.NullString
			errText                                   sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &session, &e.Op, &e.SavePath, &base, &kind, &fields, &snap, &backup, &errText); err != nil {
			return nil, err
		}
		e.Time = parseTime(ts)
		e.SessionID = session.String
		e.BaseName = base.String
		e.Kind = kind.String
		e.SnapshotID = snap.String
		e.Backup = backup.String
		e.Error = errText.String
		if fields.Valid {
			_ = json.Unmarshal([]byte(fields.String), &e.Fields)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Snapshots lists restore points recorded for savePath, newest first.
func (s *SQLiteIndex) Snapshots(ctx context.Context, savePath string) ([]Snapshot, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,save_path,base_name,file,reason,created_at,size FROM snapshots WHERE save_path = ? ORDER BY created_at DESC`, savePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var sn Snapshot
		var created string
		if err := rows.Scan(&sn.ID, &sn.SavePath, &sn.BaseName, &sn.File, &sn.Reason, &created, &sn.Size); err != nil {
			return nil, err
		}
		sn.CreatedAt = parseTime(created)
		out = append(out, sn)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
