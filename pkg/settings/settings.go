// Package settings manages persistent user defaults for the edgecheck CLI.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Settings holds persistent user preferences
type Settings struct {
	// Username is the device login used when --user is not given.
	Username string `json:"username,omitempty"`

	// ConfigPath is the policy file used when --config is not given.
	ConfigPath string `json:"config_path,omitempty"`

	// LedgerPath is the CSV audit ledger of remediation runs.
	LedgerPath string `json:"ledger_path,omitempty"`

	// JournalPath is the JSON-lines journal of remediation runs.
	JournalPath string `json:"journal_path,omitempty"`

	// HistoryDB is the SQLite database of compliance runs.
	HistoryDB string `json:"history_db,omitempty"`
}

// Dir returns the edgecheck state directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".edgecheck"
	}
	return filepath.Join(home, ".edgecheck")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields empty
// settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetLedgerPath returns the ledger path (with fallback)
func (s *Settings) GetLedgerPath() string {
	if s.LedgerPath != "" {
		return s.LedgerPath
	}
	return filepath.Join(Dir(), "ledger.csv")
}

// GetJournalPath returns the journal path (with fallback)
func (s *Settings) GetJournalPath() string {
	if s.JournalPath != "" {
		return s.JournalPath
	}
	return filepath.Join(Dir(), "journal.jsonl")
}

// GetHistoryDB returns the history database path (with fallback)
func (s *Settings) GetHistoryDB() string {
	if s.HistoryDB != "" {
		return s.HistoryDB
	}
	return filepath.Join(Dir(), "history.db")
}

// fields maps setting keys to their storage.
func (s *Settings) fields() map[string]*string {
	return map[string]*string{
		"username":     &s.Username,
		"config_path":  &s.ConfigPath,
		"ledger_path":  &s.LedgerPath,
		"journal_path": &s.JournalPath,
		"history_db":   &s.HistoryDB,
	}
}

// Keys lists the setting keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, 5)
	for k := range (&Settings{}).fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting by key.
func (s *Settings) Set(key, value string) error {
	p, ok := s.fields()[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	*p = value
	return nil
}

// Get returns one setting by key.
func (s *Settings) Get(key string) (string, error) {
	p, ok := s.fields()[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	return *p, nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
