package batch

import (
	"slices"
	"time"

	"github.com/fpang/noteclean/internal/editor"
)

// Snapshot is a point-in-time copy of the orchestrator state.
type Snapshot struct {
	BatchID   string          `json:"batchId,omitempty"`
	CreatedAt time.Time       `json:"createdAt,omitzero"`
	Mode      editor.ModeView `json:"mode"`
	Items     []Item          `json:"items"`
	Summary   Summary         `json:"summary"`

	AllDone   bool `json:"allDone"`
	AnyFailed bool `json:"anyFailed"`
	// IsProcessing is true while any item is pending or processing.
	IsProcessing bool `json:"isProcessing"`
}

// Snapshot returns the current state. With no batch loaded it carries only
// the mode and an empty item list.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Mode:  editor.ViewOf(o.mode),
		Items: []Item{},
	}
	s := o.session
	if s == nil {
		return snap
	}

	snap.BatchID = s.id
	snap.CreatedAt = s.createdAt
	snap.Items = slices.Clone(s.items)
	snap.Summary = Summarize(snap.Items)
	snap.AllDone = AllDone(snap.Items)
	snap.AnyFailed = AnyFailed(snap.Items)
	snap.IsProcessing = IsProcessing(snap.Items)
	return snap
}

// Current returns the snapshot of the loaded batch, or ErrNoBatch.
func (o *Orchestrator) Current() (Snapshot, error) {
	snap := o.Snapshot()
	if snap.BatchID == "" {
		return snap, ErrNoBatch
	}
	return snap, nil
}

// DoneItems returns the items that are done, in sequence order.
func (s Snapshot) DoneItems() []Item {
	var done []Item
	for _, it := range s.Items {
		if it.Status == StatusDone && it.Edited != nil {
			done = append(done, it)
		}
	}
	return done
}
