// Package history keeps compliance runs in SQLite so device posture can be
// compared across runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/report"
)

// Run summarizes one saved compliance run.
type Run struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Devices int       `json:"devices"`
	OK      int       `json:"ok"`
	Warn    int       `json:"warn"`
	Unknown int       `json:"unknown"`
}

// DeviceRun is one device's overall status in one run.
type DeviceRun struct {
	RunID    string            `json:"run_id"`
	Time     time.Time         `json:"time"`
	Address  string            `json:"address"`
	Hostname string            `json:"hostname,omitempty"`
	Variant  string            `json:"variant"`
	Overall  compliance.Status `json:"overall"`
}

// Store handles persistence of compliance runs to SQLite
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		run_time INTEGER NOT NULL -- Unix timestamp
	);
	CREATE TABLE IF NOT EXISTS devices (
		run_id TEXT NOT NULL REFERENCES runs(id),
		address TEXT NOT NULL,
		hostname TEXT,
		site TEXT,
		variant TEXT NOT NULL,
		overall TEXT NOT NULL,
		PRIMARY KEY (run_id, address)
	);
	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL,
		address TEXT NOT NULL,
		position INTEGER NOT NULL,
		check_id TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT,
		PRIMARY KEY (run_id, address, check_id)
	);
	CREATE INDEX IF NOT EXISTS idx_devices_address ON devices(address);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReport stores every section of a run in one transaction.
func (s *Store) SaveReport(ctx context.Context, runID string, at time.Time, sections []report.Section) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, run_time) VALUES (?, ?)`, runID, at.Unix()); err != nil {
		return fmt.Errorf("saving run %s: %w", runID, err)
	}

	devStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO devices (run_id, address, hostname, site, variant, overall)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer devStmt.Close()

	resStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO results (run_id, address, position, check_id, status, message)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer resStmt.Close()

	for _, sec := range sections {
		if _, err := devStmt.ExecContext(ctx, runID, sec.Address, sec.Hostname, sec.Site, string(sec.Variant), string(sec.Overall)); err != nil {
			return fmt.Errorf("saving device %s: %w", sec.Address, err)
		}
		for i, r := range sec.Results {
			if _, err := resStmt.ExecContext(ctx, runID, sec.Address, i, string(r.Check), string(r.Status), r.Message); err != nil {
				return fmt.Errorf("saving result %s/%s: %w", sec.Address, r.Check, err)
			}
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.run_time,
			COUNT(d.address),
			COALESCE(SUM(CASE WHEN d.overall = 'ok' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN d.overall = 'warn' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN d.overall = 'unknown' THEN 1 ELSE 0 END), 0)
		FROM runs r LEFT JOIN devices d ON d.run_id = r.id
		GROUP BY r.id, r.run_time
		ORDER BY r.run_time DESC, r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts int64
		if err := rows.Scan(&r.ID, &ts, &r.Devices, &r.OK, &r.Warn, &r.Unknown); err != nil {
			return nil, err
		}
		r.Time = time.Unix(ts, 0)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeviceHistory returns the overall status of address in each run, newest first.
func (s *Store) DeviceHistory(ctx context.Context, address string, limit int) ([]DeviceRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.run_id, r.run_time, d.address, COALESCE(d.hostname, ''), d.variant, d.overall
		FROM devices d JOIN runs r ON r.id = d.run_id
		WHERE d.address = ?
		ORDER BY r.run_time DESC, r.id DESC
		LIMIT ?`, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeviceRun
	for rows.Next() {
		var d DeviceRun
		var ts int64
		var overall string
		if err := rows.Scan(&d.RunID, &ts, &d.Address, &d.Hostname, &d.Variant, &overall); err != nil {
			return nil, err
		}
		d.Time = time.Unix(ts, 0)
		d.Overall = compliance.Status(overall)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Results returns the stored results of one device in one run, in report order.
func (s *Store) Results(ctx context.Context, runID, address string) ([]compliance.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT check_id, status, COALESCE(message, '')
		FROM results WHERE run_id = ? AND address = ?
		ORDER BY position`, runID, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []compliance.Result
	for rows.Next() {
		var id, status, msg string
		if err := rows.Scan(&id, &status, &msg); err != nil {
			return nil, err
		}
		out = append(out, compliance.Result{Check: compliance.CheckID(id), Status: compliance.Status(status), Message: msg})
	}
	return out, rows.Err()
}
