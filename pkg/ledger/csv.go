// Package ledger records the outcome of every device visited by a
// remediation run: a two-column CSV ledger for operators and a JSON-lines
// journal that can be queried afterwards.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/edgecheck-network/edgecheck/pkg/remediate"
)

// Header is the first row of every CSV ledger file.
var Header = []string{"Device", "Status"}

// CSVLedger appends one "Device,Status" row per entry. The file is created
// with the header when absent and is never truncated. Appends are serialized
// within the process by a mutex and across processes by a lock file, so
// several walkers may share one ledger.
type CSVLedger struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewCSVLedger prepares a ledger at path, creating its directory.
func NewCSVLedger(path string) (*CSVLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	return &CSVLedger{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the ledger file path.
func (l *CSVLedger) Path() string {
	return l.path
}

// Append writes entry as one row.
func (l *CSVLedger) Append(entry remediate.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("locking ledger: %w", err)
	}
	defer l.lock.Unlock()

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return err
		}
	}
	if err := w.Write([]string{entry.Device, entry.Status()}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Row is one ledger line.
type Row struct {
	Device string
	Status string
}

// ReadCSV returns the rows of the ledger at path, without the header. A
// missing file has no rows.
func ReadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(Header)
	var rows []Row
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading ledger %s: %w", path, err)
		}
		if first {
			first = false
			if rec[0] == Header[0] && rec[1] == Header[1] {
				continue
			}
		}
		rows = append(rows, Row{Device: rec[0], Status: rec[1]})
	}
	return rows, nil
}
