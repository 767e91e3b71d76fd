package notify

import (
	"context"
	"errors"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Multi fans the run outcome out to several notifiers. Every notifier is
// attempted; errors are joined so one failing channel never silences another.
type Multi struct {
	notifiers []contracts.Notifier
}

// NewMulti creates a fanout notifier, dropping nil members
func NewMulti(notifiers ...contracts.Notifier) *Multi {
	kept := make([]contracts.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept}
}

// Send delivers to all notifiers
func (m *Multi) Send(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, summary, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ contracts.Notifier = (*Multi)(nil)
