package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/edgecheck-network/edgecheck/pkg/remediate"
)

func TestCSVLedger_HeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "ledger.csv")

	first, err := NewCSVLedger(path)
	if err != nil {
		t.Fatalf("NewCSVLedger: %v", err)
	}
	if err := first.Append(remediate.AuditEntry{Device: "10.0.0.1", Outcome: remediate.OutcomeConfigured}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// A resumed run opens the same file again.
	second, err := NewCSVLedger(path)
	if err != nil {
		t.Fatalf("NewCSVLedger: %v", err)
	}
	if err := second.Append(remediate.AuditEntry{Device: "10.0.0.2", Outcome: remediate.OutcomeAuthFailed}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Device,Status\n10.0.0.1,Configured\n10.0.0.2,AuthFailed\n"
	if string(data) != want {
		t.Errorf("ledger = %q, want %q", data, want)
	}
}

func TestCSVLedger_NeverTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	if err := os.WriteFile(path, []byte("Device,Status\n10.9.9.9,Unreachable\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := NewCSVLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Append(remediate.AuditEntry{Device: "10.0.0.1", Outcome: remediate.OutcomeAlreadyCompliant}); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := []Row{{"10.9.9.9", "Unreachable"}, {"10.0.0.1", "AlreadyCompliant"}}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestCSVLedger_PartialFailureReasonIsQuoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	l, err := NewCSVLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	entry := remediate.AuditEntry{
		Device:  "10.0.0.1",
		Outcome: remediate.OutcomePartialFailure,
		Reason:  "still missing SNMP_RO: 10.1.1.1, 10.1.1.2",
	}
	if err := l.Append(entry); err != nil {
		t.Fatal(err)
	}

	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Status != entry.Status() {
		t.Errorf("rows = %v, want status %q", rows, entry.Status())
	}
}

func TestCSVLedger_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	l, err := NewCSVLedger(path)
	if err != nil {
		t.Fatal(err)
	}

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := remediate.AuditEntry{Device: fmt.Sprintf("10.0.1.%d", i), Outcome: remediate.OutcomeConfigured}
			if err := l.Append(entry); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "Device,Status"); got != 1 {
		t.Errorf("header appears %d times", got)
	}
	rows, err := ReadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != n {
		t.Errorf("got %d rows, want %d", len(rows), n)
	}
}

func TestReadCSV_Missing(t *testing.T) {
	rows, err := ReadCSV(filepath.Join(t.TempDir(), "none.csv"))
	if err != nil || len(rows) != 0 {
		t.Errorf("ReadCSV() = %v, %v; want no rows", rows, err)
	}
}

type failingRecorder struct{ err error }

func (f failingRecorder) Append(remediate.AuditEntry) error { return f.err }

type countingRecorder struct{ n int }

func (c *countingRecorder) Append(remediate.AuditEntry) error {
	c.n++
	return nil
}

func TestMulti(t *testing.T) {
	boom := errors.New("disk full")
	counter := &countingRecorder{}
	m := Multi{failingRecorder{boom}, nil, counter}

	err := m.Append(remediate.AuditEntry{Device: "10.0.0.1"})
	if !errors.Is(err, boom) {
		t.Errorf("Append() error = %v, want %v", err, boom)
	}
	if counter.n != 1 {
		t.Errorf("later recorder called %d times, want 1", counter.n)
	}
	if err := (Multi{counter}).Append(remediate.AuditEntry{}); err != nil {
		t.Errorf("Append() = %v, want nil", err)
	}
}
