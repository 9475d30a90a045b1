package batch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/noteclean/internal/editor"
	"github.com/fpang/noteclean/internal/filehandler"
	"github.com/fpang/noteclean/internal/metrics"
)

var (
	// ErrNoBatch is returned when an operation needs a batch and none is loaded.
	ErrNoBatch = errors.New("no batch loaded")
	// ErrEmptyBatch is returned by StartBatch for an empty item list.
	ErrEmptyBatch = errors.New("batch has no items")
)

// Editor performs a single remote edit. *editor.Client satisfies it.
type Editor interface {
	Edit(ctx context.Context, img filehandler.Image, mode editor.Mode) (filehandler.Image, error)
}

// Options configures an Orchestrator.
type Options struct {
	// MaxConcurrent caps simultaneous edits per batch. 0 means unlimited.
	MaxConcurrent int
	// Metrics receives one EMF record per settled edit. nil disables metrics.
	Metrics *metrics.Emitter
}

// Orchestrator owns the current batch, the current mode and the editor.
// A fresh Orchestrator holds no batch; StartBatch replaces it and Reset
// discards it. All methods are safe for concurrent use.
type Orchestrator struct {
	editor  Editor
	opts    Options
	metrics *metrics.Emitter

	mu      sync.Mutex
	mode    editor.Mode
	session *session
}

// session is one loaded batch. Results are applied only while the session
// is still the Orchestrator's current one.
type session struct {
	id        string
	createdAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group

	// guarded by Orchestrator.mu
	items    []Item
	index    map[string]int
	inflight map[string]bool // ids with a queued or running edit
	pending  int
	idle     chan struct{}
}

// New creates an Orchestrator with no batch and the default mode.
func New(ed Editor, opts Options) *Orchestrator {
	m := opts.Metrics
	if m == nil {
		m = metrics.Disabled()
	}
	return &Orchestrator{
		editor:  ed,
		opts:    opts,
		metrics: m,
		mode:    editor.DefaultMode(),
	}
}

func newBatchID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate random batch ID")
	}
	return "batch-" + hex.EncodeToString(b)
}

// StartBatch replaces the current batch with items and launches one edit per
// item. It returns the new batch id without waiting for any edit. Items are
// reset to pending; their order and sequence numbers are kept.
func (o *Orchestrator) StartBatch(items []Item) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyBatch
	}

	index := make(map[string]int, len(items))
	fresh := make([]Item, len(items))
	for i, it := range items {
		if it.ID == "" {
			return "", fmt.Errorf("item %d has no id", i)
		}
		if _, dup := index[it.ID]; dup {
			return "", fmt.Errorf("duplicate item id %s", it.ID)
		}
		index[it.ID] = i
		it.Status = StatusPending
		it.Attempts = 0
		it.Error = ""
		it.ErrorKind = ""
		it.Edited = nil
		fresh[i] = it
	}

	ctx, cancel := context.WithCancel(context.Background())
	group := new(errgroup.Group)
	if o.opts.MaxConcurrent > 0 {
		group.SetLimit(o.opts.MaxConcurrent)
	}
	s := &session{
		id:        newBatchID(),
		createdAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		group:     group,
		items:     fresh,
		index:     index,
		inflight:  make(map[string]bool, len(fresh)),
	}

	ids := make([]string, len(fresh))
	for i, it := range fresh {
		ids[i] = it.ID
	}

	o.mu.Lock()
	previous := o.session
	o.session = s
	mode := o.mode
	o.launchLocked(s, ids)
	o.mu.Unlock()

	if previous != nil {
		previous.cancel()
		log.Info().Str("batch_id", previous.id).Msg("Previous batch replaced")
	}

	log.Info().
		Str("batch_id", s.id).
		Int("items", len(fresh)).
		Str("mode", mode.Name()).
		Int("max_concurrent", o.opts.MaxConcurrent).
		Msg("Batch started")

	return s.id, nil
}

// RetryItem re-launches the edit of one item, whatever its status, using
// the current mode. An item that is done is regenerated; its previous edit
// stays visible until the new one succeeds. An item whose edit is still
// queued or running is left alone. Unknown ids are a no-op and return false.
func (o *Orchestrator) RetryItem(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session
	if s == nil {
		return false
	}
	if _, ok := s.index[id]; !ok {
		log.Debug().Str("item_id", id).Msg("Retry ignored for unknown item")
		return false
	}

	if o.launchLocked(s, []string{id}) == 0 {
		log.Debug().Str("batch_id", s.id).Str("item_id", id).Msg("Retry ignored, edit already in flight")
		return true
	}
	log.Info().Str("batch_id", s.id).Str("item_id", id).Msg("Retrying item")
	return true
}

// RetryAllFailed re-launches every item that is failed or pending and has
// no edit queued or running, and returns how many were launched. Done and
// processing items are untouched.
func (o *Orchestrator) RetryAllFailed() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session
	if s == nil {
		return 0
	}

	var ids []string
	for _, it := range s.items {
		if (it.Status == StatusFailed || it.Status == StatusPending) && !s.inflight[it.ID] {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) == 0 {
		return 0
	}

	n := o.launchLocked(s, ids)
	log.Info().Str("batch_id", s.id).Int("items", n).Msg("Retrying failed items")
	return n
}

// Reset discards the current batch and cancels its outstanding edits.
// Results that arrive afterwards are dropped.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	s := o.session
	o.session = nil
	o.mu.Unlock()

	if s == nil {
		return
	}
	s.cancel()
	log.Info().Str("batch_id", s.id).Msg("Batch reset")
}

// SetMode changes the mode used by edits launched or started from now on.
// Edits already talking to the model keep the mode they started with.
func (o *Orchestrator) SetMode(mode editor.Mode) {
	if mode == nil {
		mode = editor.DefaultMode()
	}
	o.mu.Lock()
	o.mode = mode
	o.mu.Unlock()
	log.Info().Str("mode", mode.Name()).Msg("Mode changed")
}

// Mode returns the current mode.
func (o *Orchestrator) Mode() editor.Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Item returns a copy of the item with the given id.
func (o *Orchestrator) Item(id string) (Item, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return Item{}, false
	}
	i, ok := o.session.index[id]
	if !ok {
		return Item{}, false
	}
	return o.session.items[i], true
}

// Wait blocks until every edit launched in the current batch has settled,
// or ctx is done. It returns nil immediately when no batch is loaded.
func (o *Orchestrator) Wait(ctx context.Context) error {
	for {
		o.mu.Lock()
		s := o.session
		if s == nil || s.pending == 0 {
			o.mu.Unlock()
			return nil
		}
		idle := s.idle
		o.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// launchLocked queues one edit per id on the session's task group and
// returns how many were queued. Ids that already have an edit in flight are
// skipped. Launched items leave failed/done at once: processing when edits
// start immediately, pending while they wait for a concurrency slot.
// o.mu must be held.
func (o *Orchestrator) launchLocked(s *session, ids []string) int {
	queued := StatusProcessing
	if o.opts.MaxConcurrent > 0 {
		queued = StatusPending
	}

	launch := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.inflight[id] {
			continue
		}
		if _, ok := s.update(id, func(it *Item) { it.Status = queued }); !ok {
			continue
		}
		s.inflight[id] = true
		launch = append(launch, id)
	}
	if len(launch) == 0 {
		return 0
	}

	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending += len(launch)

	// Group.Go blocks once the concurrency limit is reached, so queueing
	// happens off the caller's goroutine.
	go func() {
		for _, id := range launch {
			s.group.Go(func() error {
				defer o.finish(s, id)
				o.processItem(s, id)
				return nil
			})
		}
	}()
	return len(launch)
}

func (o *Orchestrator) finish(s *session, id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(s.inflight, id)
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// processItem runs one edit: pending/failed/done -> processing -> done|failed.
func (o *Orchestrator) processItem(s *session, id string) {
	if s.ctx.Err() != nil {
		return
	}

	o.mu.Lock()
	if o.session != s {
		o.mu.Unlock()
		return
	}
	mode := o.mode
	item, ok := s.update(id, func(it *Item) {
		it.Status = StatusProcessing
		it.Attempts++
	})
	o.mu.Unlock()
	if !ok {
		return
	}

	start := time.Now()
	edited, err := o.safeEdit(s.ctx, item.Original, mode)
	elapsed := time.Since(start)
	if err == nil && edited.IsZero() {
		err = editor.ErrNoImage
	}

	var kind string
	if err != nil {
		kind = editor.ClassifyError(err).Kind.String()
	}

	o.mu.Lock()
	if o.session != s {
		o.mu.Unlock()
		log.Debug().Str("batch_id", s.id).Str("item_id", id).Msg("Dropping result for discarded batch")
		return
	}
	settled, _ := s.update(id, func(it *Item) {
		if err != nil {
			it.Status = StatusFailed
			it.Error = err.Error()
			it.ErrorKind = kind
			return
		}
		out := edited
		it.Status = StatusDone
		it.Edited = &out
		it.Error = ""
		it.ErrorKind = ""
	})
	o.mu.Unlock()

	if err != nil {
		log.Warn().
			Err(err).
			Str("batch_id", s.id).
			Str("item_id", id).
			Int("sequence", settled.Sequence).
			Str("mode", mode.Name()).
			Str("error_kind", kind).
			Dur("duration", elapsed).
			Msg("Item edit failed")
	} else {
		log.Debug().
			Str("batch_id", s.id).
			Str("item_id", id).
			Int("sequence", settled.Sequence).
			Str("mode", mode.Name()).
			Int("output_bytes", len(edited.Data)).
			Dur("duration", elapsed).
			Msg("Item edit complete")
	}

	rec := o.metrics.New().
		Dimension("Mode", mode.Name()).
		Dimension("Outcome", string(settled.Status)).
		Metric("EditLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ItemsProcessed").
		Property("batchId", s.id).
		Property("attempt", settled.Attempts)
	if kind != "" {
		rec.Property("errorKind", kind)
	}
	rec.Flush()
}

// safeEdit calls the editor and converts a panic into an error.
func (o *Orchestrator) safeEdit(ctx context.Context, img filehandler.Image, mode editor.Mode) (out filehandler.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("editor panicked: %v", r)
		}
	}()
	return o.editor.Edit(ctx, img, mode)
}

// update replaces the item with the given id by a modified copy. The items
// slice itself is replaced so earlier snapshots are never mutated.
// Orchestrator.mu must be held.
func (s *session) update(id string, fn func(*Item)) (Item, bool) {
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	items := slices.Clone(s.items)
	fn(&items[i])
	s.items = items
	return items[i], true
}
