// Package batch tracks a set of page items through remote editing: it
// launches one edit per item concurrently, records each outcome on the item,
// and supports per-item and bulk retries.
package batch

import (
	"github.com/google/uuid"

	"github.com/fpang/noteclean/internal/filehandler"
)

// Status is the processing state of an Item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Item is one page or image being edited.
//
// Original never changes. Edited holds the most recent successful edit: it
// is replaced on every success and kept on failure, so Edited != nil exactly
// when the item reached done at least once.
type Item struct {
	ID        string `json:"id"`
	Sequence  int    `json:"sequenceIndex"`
	Source    string `json:"source,omitempty"`
	Page      int    `json:"page,omitempty"`
	Status    Status `json:"status"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`

	Original filehandler.Image  `json:"-"`
	Edited   *filehandler.Image `json:"-"`
}

// NewItem creates a pending item with a fresh id. page is 1-based for
// document pages and 0 for standalone images.
func NewItem(source string, page int, original filehandler.Image) Item {
	return Item{
		ID:       uuid.NewString(),
		Source:   source,
		Page:     page,
		Status:   StatusPending,
		Original: original,
	}
}

// OriginalURL returns the original image as a data: URL.
func (it Item) OriginalURL() string {
	return it.Original.DataURL()
}

// EditedURL returns the latest edit as a data: URL, or "" before the first success.
func (it Item) EditedURL() string {
	if it.Edited == nil {
		return ""
	}
	return it.Edited.DataURL()
}

// HasEdit reports whether the item has ever been edited successfully.
func (it Item) HasEdit() bool {
	return it.Edited != nil
}

// Renumber assigns contiguous 1-based sequence numbers in slice order.
func Renumber(items []Item) {
	for i := range items {
		items[i].Sequence = i + 1
	}
}
