package ledger

import (
	"errors"

	"github.com/edgecheck-network/edgecheck/pkg/remediate"
)

// Multi fans one entry out to several recorders. Every recorder is tried;
// the failures are joined.
type Multi []remediate.Recorder

// Append records entry in every recorder.
func (m Multi) Append(entry remediate.AuditEntry) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Append(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
