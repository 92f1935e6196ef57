package crosspost

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Run is the state of one deferred execution: the per-recipient suppression ledger
// and whether the held notification was released.
// A Run is never shared between invocations.
type Run struct {
	ID string

	released bool
	ledger   map[uint]map[uint]struct{}
}

func NewRun() *Run {
	return &Run{
		ID:     uuid.NewString(),
		ledger: make(map[uint]map[uint]struct{}),
	}
}

// Notified reports whether recipient was already told about any of topics during this run.
func (r *Run) Notified(recipient uint, topics []uint) bool {
	seen, ok := r.ledger[recipient]
	if !ok {
		return false
	}
	return lo.SomeBy(topics, func(item uint) bool {
		_, hit := seen[item]
		return hit
	})
}

func (r *Run) MarkNotified(recipient, topic uint) {
	if _, ok := r.ledger[recipient]; !ok {
		r.ledger[recipient] = make(map[uint]struct{})
	}
	r.ledger[recipient][topic] = struct{}{}
}
