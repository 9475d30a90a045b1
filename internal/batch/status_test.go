package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fpang/noteclean/internal/filehandler"
)

func withStatuses(statuses ...Status) []Item {
	items := make([]Item, len(statuses))
	for i, s := range statuses {
		items[i] = Item{ID: string(rune('a' + i)), Status: s}
	}
	return items
}

func TestDerivedStatus(t *testing.T) {
	tests := []struct {
		name       string
		items      []Item
		allDone    bool
		anyFailed  bool
		processing bool
		settled    bool
	}{
		{"empty", nil, false, false, false, true},
		{"all done", withStatuses(StatusDone, StatusDone), true, false, false, true},
		{"one failed", withStatuses(StatusDone, StatusFailed, StatusDone, StatusDone), false, true, false, true},
		{"in flight", withStatuses(StatusProcessing, StatusDone), false, false, true, false},
		{"pending", withStatuses(StatusPending), false, false, true, false},
		{"pending and done", withStatuses(StatusPending, StatusDone), false, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allDone, AllDone(tt.items))
			assert.Equal(t, tt.anyFailed, AnyFailed(tt.items))
			assert.Equal(t, tt.processing, IsProcessing(tt.items))
			assert.Equal(t, tt.settled, Settled(tt.items))
		})
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(withStatuses(StatusPending, StatusProcessing, StatusDone, StatusDone, StatusFailed))
	assert.Equal(t, Summary{Total: 5, Pending: 1, Processing: 1, Done: 2, Failed: 1}, got)
}

func TestNewItemAndRenumber(t *testing.T) {
	img := filehandler.Image{MIMEType: "image/jpeg", Data: []byte("x")}
	a := NewItem("a.pdf", 1, img)
	b := NewItem("b.png", 0, img)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.Equal(t, StatusPending, a.Status)
	assert.False(t, a.HasEdit())
	assert.Equal(t, "data:image/jpeg;base64,eA==", a.OriginalURL())

	items := []Item{a, b}
	Renumber(items)
	assert.Equal(t, 1, items[0].Sequence)
	assert.Equal(t, 2, items[1].Sequence)
}
