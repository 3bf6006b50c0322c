package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgecheck-network/edgecheck/pkg/remediate"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Event is one journal line: an audit entry with the run and operator that
// produced it.
type Event struct {
	ID        string              `json:"id"`
	RunID     string              `json:"run_id"`
	Timestamp time.Time           `json:"timestamp"`
	User      string              `json:"user,omitempty"`
	Device    string              `json:"device"`
	Outcome   remediate.Outcome   `json:"outcome"`
	Reason    string              `json:"reason,omitempty"`
	Added     map[string][]string `json:"added,omitempty"`
	Duration  time.Duration       `json:"duration"`
}

// NewEvent wraps an audit entry.
func NewEvent(runID, user string, entry remediate.AuditEntry) *Event {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return &Event{
		ID:        uuid.NewString(),
		RunID:     runID,
		Timestamp: ts,
		User:      user,
		Device:    entry.Device,
		Outcome:   entry.Outcome,
		Reason:    entry.Reason,
		Added:     entry.Added,
		Duration:  entry.Duration,
	}
}

// Entry converts the event back to an audit entry.
func (e *Event) Entry() remediate.AuditEntry {
	return remediate.AuditEntry{
		Time:     e.Timestamp,
		Device:   e.Device,
		Outcome:  e.Outcome,
		Reason:   e.Reason,
		Added:    e.Added,
		Duration: e.Duration,
	}
}

// Filter selects journal events.
type Filter struct {
	Device  string
	RunID   string
	Outcome remediate.Outcome
	Since   time.Time
	// Last keeps only the most recent matching events.
	Last int
}

func (f Filter) matches(e *Event) bool {
	if f.Device != "" && e.Device != f.Device {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// RotationConfig configures journal file rotation
type RotationConfig struct {
	MaxSize    int64 // Max file size in bytes before rotation
	MaxBackups int   // Max number of old files to retain
}

// Journal appends events to a JSON-lines file.
type Journal struct {
	RunID string
	User  string

	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// OpenJournal opens (or creates) the journal at path for the given run.
func OpenJournal(path, runID, user string, rotation RotationConfig) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Journal{
		RunID:    runID,
		User:     user,
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

// Append records entry under the journal's run.
func (j *Journal) Append(entry remediate.AuditEntry) error {
	return j.Log(NewEvent(j.RunID, j.User, entry))
}

// Log writes one event.
func (j *Journal) Log(event *Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return errors.New("journal is closed")
	}
	if j.rotation.MaxSize > 0 {
		if info, err := j.file.Stat(); err == nil && info.Size() >= j.rotation.MaxSize {
			if err := j.rotate(); err != nil {
				return fmt.Errorf("rotating journal: %w", err)
			}
		}
	}
	return j.encoder.Encode(event)
}

// Query returns the events of the journal file matching filter, oldest first.
func (j *Journal) Query(filter Filter) ([]*Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return QueryFile(j.path, filter)
}

// Close closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// QueryFile reads the journal at path without opening it for writing. A
// missing file yields no events; malformed lines are skipped.
func QueryFile(path string, filter Filter) ([]*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*Event{}, nil
		}
		return nil, err
	}
	defer file.Close()

	events := []*Event{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.Warnf("journal: skipping malformed entry at line %d: %v", lineNum, err)
			continue
		}
		if filter.matches(&event) {
			events = append(events, &event)
		}
	}
	if filter.Last > 0 && filter.Last < len(events) {
		events = events[len(events)-filter.Last:]
	}
	return events, scanner.Err()
}

func (j *Journal) rotate() error {
	if err := j.file.Close(); err != nil {
		return err
	}
	rotated := j.path + "." + time.Now().Format("20060102-150405.000000000")
	if err := os.Rename(j.path, rotated); err != nil {
		return err
	}
	file, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	j.file = file
	j.encoder = json.NewEncoder(file)
	if j.rotation.MaxBackups > 0 {
		j.pruneBackups()
	}
	return nil
}

// pruneBackups removes the oldest rotated files beyond MaxBackups.
func (j *Journal) pruneBackups() {
	matches, err := filepath.Glob(j.path + ".*")
	if err != nil || len(matches) <= j.rotation.MaxBackups {
		return
	}
	// Rotated names embed a sortable timestamp.
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-j.rotation.MaxBackups] {
		if err := os.Remove(path); err != nil {
			util.Warnf("journal: removing old backup %s: %v", path, err)
		}
	}
}
