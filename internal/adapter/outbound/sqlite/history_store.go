// Package sqlite provides the optional audit history sink: a mirror
// of monitor records into a local sqlite database for the
// `fileguardctl history` subcommand (SPEC_FULL.md §4.F). It never
// persists rules — only a copy of audit records already delivered
// over the monitor channel — so it does not reopen the "no rule
// persistence" non-goal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitor_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	op INTEGER NOT NULL,
	set_info_kind INTEGER NOT NULL,
	requestor_pid INTEGER NOT NULL,
	requestor_tid INTEGER NOT NULL,
	volume_serial INTEGER NOT NULL,
	file_id BLOB NOT NULL,
	captured_at INTEGER NOT NULL,
	status INTEGER NOT NULL,
	matched_major INTEGER NOT NULL,
	matched_minor INTEGER NOT NULL,
	matched_pattern TEXT NOT NULL,
	original_path TEXT NOT NULL,
	rename_target_path TEXT NOT NULL
);
`

// HistoryStore mirrors delivered monitor records into a sqlite
// database, independent of the live in-memory queue's own bounds.
type HistoryStore struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path and ensures its
// schema exists.
func Open(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Append mirrors one monitor record into history. Failures are the
// caller's to log; history is best-effort and must never block or
// fail the live monitor pipeline.
func (s *HistoryStore) Append(ctx context.Context, rec monitor.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitor_records (
			op, set_info_kind, requestor_pid, requestor_tid, volume_serial,
			file_id, captured_at, status, matched_major, matched_minor,
			matched_pattern, original_path, rename_target_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Op, rec.SetInfoKind, rec.RequestorPID, rec.RequestorTID, rec.VolumeSerial,
		rec.FileID[:], rec.CapturedAt.UnixNano(), rec.Status, rec.MatchedMajor, rec.MatchedMinor,
		rec.MatchedPattern, rec.OriginalPath, rec.RenameTargetPath,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert record: %w", err)
	}
	return nil
}

// Recent returns the n most recently appended records, newest first.
func (s *HistoryStore) Recent(ctx context.Context, n int) ([]monitor.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT op, set_info_kind, requestor_pid, requestor_tid, volume_serial,
		       file_id, captured_at, status, matched_major, matched_minor,
		       matched_pattern, original_path, rename_target_path
		FROM monitor_records ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []monitor.Record
	for rows.Next() {
		var rec monitor.Record
		var fileID []byte
		var capturedAtNanos int64
		if err := rows.Scan(
			&rec.Op, &rec.SetInfoKind, &rec.RequestorPID, &rec.RequestorTID, &rec.VolumeSerial,
			&fileID, &capturedAtNanos, &rec.Status, &rec.MatchedMajor, &rec.MatchedMinor,
			&rec.MatchedPattern, &rec.OriginalPath, &rec.RenameTargetPath,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan record: %w", err)
		}
		copy(rec.FileID[:], fileID)
		rec.CapturedAt = time.Unix(0, capturedAtNanos).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate recent: %w", err)
	}
	return out, nil
}
