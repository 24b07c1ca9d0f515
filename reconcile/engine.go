// Package reconcile keeps the client's view of an in-flight OCR batch in step
// with the conversion service.
//
// The Engine owns the batch. It applies the optimistic local transitions of a
// submission, merges every polled server snapshot into the batch, detects
// completion, and persists the result after each change so that a restarted
// process resumes an unfinished batch by polling alone.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wudi/ocrdesk/client"
	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/ocr"
	"github.com/wudi/ocrdesk/persist"
)

var (
	ErrEmptyBatch    = errors.New("reconcile: no files to submit")
	ErrDuplicateName = errors.New("reconcile: duplicate file name in batch")
	ErrBusy          = errors.New("reconcile: a batch is already processing")
	ErrClosed        = errors.New("reconcile: engine closed")
	ErrStarted       = errors.New("reconcile: engine already started")
	ErrUnknownTab    = errors.New("reconcile: unknown tab")
)

// DefaultPollInterval is the delay between two polls of the result list.
const DefaultPollInterval = 2 * time.Second

// Backend is the subset of the service API the engine consumes.
type Backend interface {
	Upload(ctx context.Context, files []client.File, batchSize int, progress client.ProgressFunc) (ocr.ResultList, error)
	Results(ctx context.Context) (ocr.ResultList, error)
	Stats(ctx context.Context) (ocr.Statistics, error)
	Clear(ctx context.Context) error
}

var _ Backend = (*client.Client)(nil)

// Notice is a user-facing message for batch-fatal failures.
type Notice struct {
	Title   string
	Message string
}

// Library is the service-wide view refreshed whenever a batch settles.
type Library struct {
	Results     []ocr.ResultRecord
	Stats       ocr.Statistics
	RefreshedAt time.Time
}

// Reviewable returns the successful results in library order.
func (l Library) Reviewable() []ocr.ResultRecord { return ocr.Reviewable(l.Results) }

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// OnComplete registers a callback run once per batch when every item has
// reached a terminal status. It runs without engine locks held but on the
// engine's goroutine, so it must not call Close.
func OnComplete(fn func(State)) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// OnNotice registers a callback for batch-fatal failures.
func OnNotice(fn func(Notice)) Option {
	return func(e *Engine) { e.onNotice = fn }
}

// OnChange registers a callback run after every committed state change. It
// runs with the engine lock held and must not call back into the Engine.
func OnChange(fn func(State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// Engine reconciles the local batch with the service. All methods are safe
// for concurrent use.
type Engine struct {
	backend    Backend
	store      persist.Store
	log        observability.Logger
	tracer     observability.Tracer
	interval   time.Duration
	now        func() time.Time
	onComplete func(State)
	onNotice   func(Notice)
	onChange   func(State)

	mu         sync.Mutex
	state      State
	library    Library
	lastStamp  int64
	started    bool
	closed     bool
	inFlight   bool
	lifetime   context.Context
	cancel     context.CancelFunc
	pollCancel context.CancelFunc
	wg         sync.WaitGroup
}

// New returns an engine in the default state. Call Start to restore the
// persisted state and resume polling, or Restore to only load it.
func New(backend Backend, store persist.Store, opts ...Option) *Engine {
	if store == nil {
		store = persist.NewMemoryStore()
	}
	e := &Engine{
		backend:  backend,
		store:    store,
		log:      observability.NopLogger{},
		tracer:   observability.NopTracer(),
		interval: DefaultPollInterval,
		now:      time.Now,
		state:    DefaultState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lifetime, e.cancel = context.WithCancel(context.Background())
	return e
}

// Restore replaces the in-memory state with the persisted snapshot. A
// missing or corrupt snapshot leaves the default state in place; individual
// bad fields are skipped.
func (e *Engine) Restore(ctx context.Context) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restoreLocked(ctx)
	return e.state.Clone()
}

func (e *Engine) restoreLocked(ctx context.Context) {
	data, err := e.store.Load(ctx, StateKey)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			e.log.Warn("state load failed", observability.Error("error", err))
		}
		return
	}
	restored, skipped := decodeSnapshot(data, DefaultState())
	if len(skipped) > 0 {
		e.log.Debug("state restored partially", observability.Int("skipped", len(skipped)))
	}
	if restored.IsProcessing && len(restored.Batch) == 0 {
		restored.IsProcessing = false
	}
	e.state = restored
}

// Start restores the persisted state, resumes polling when the restored
// batch was still processing, and loads the library once. The engine stops
// when ctx is cancelled or Close is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.started {
		e.mu.Unlock()
		return ErrStarted
	}
	if e.pollCancel != nil {
		e.mu.Unlock()
		return ErrBusy
	}
	e.started = true
	e.cancel()
	e.lifetime, e.cancel = context.WithCancel(ctx)
	e.restoreLocked(ctx)
	if e.state.IsProcessing {
		e.log.Info("resuming batch", observability.Int("items", len(e.state.Batch)))
		e.startPollingLocked()
	}
	e.commitLocked()
	lifetime := e.lifetime
	e.mu.Unlock()

	_ = e.Refresh(lifetime)
	return nil
}

// Close stops polling and waits for the polling goroutine to exit. No state
// changes from ticks happen after Close returns.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.stopPollingLocked()
	e.cancel()
	e.mu.Unlock()
	e.wg.Wait()
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Library returns the last refreshed service-wide view.
func (e *Engine) Library() Library {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.library
	out.Results = append([]ocr.ResultRecord(nil), e.library.Results...)
	return out
}

// Polling reports whether the polling task is running.
func (e *Engine) Polling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pollCancel != nil
}

// SetActiveTab records the active view. Switching to a view that shows
// service-wide data refreshes the library.
func (e *Engine) SetActiveTab(ctx context.Context, tab string) error {
	if !ValidTab(tab) {
		return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	e.mu.Lock()
	changed := e.state.ActiveTab != tab
	e.state.ActiveTab = tab
	if changed {
		e.commitLocked()
	}
	e.mu.Unlock()
	switch tab {
	case TabResults, TabReview, TabStatistics:
		return e.Refresh(ctx)
	}
	return nil
}

// SetBatchSize records the concurrency hint used by the next submission.
func (e *Engine) SetBatchSize(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n = ClampBatchSize(n)
	if e.state.BatchSize != n {
		e.state.BatchSize = n
		e.commitLocked()
	}
	return n
}

// Refresh reloads results and statistics into the library.
func (e *Engine) Refresh(ctx context.Context) error {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanRefresh)
	defer span.Finish()
	results, err := e.backend.Results(ctx)
	if err != nil {
		span.SetError(err)
		e.log.Warn("refresh results failed", observability.Error("error", err))
		return fmt.Errorf("refresh results: %w", err)
	}
	stats, err := e.backend.Stats(ctx)
	if err != nil {
		span.SetError(err)
		e.log.Warn("refresh stats failed", observability.Error("error", err))
		return fmt.Errorf("refresh stats: %w", err)
	}
	e.mu.Lock()
	e.library = Library{Results: results.Results, Stats: stats, RefreshedAt: e.now()}
	e.mu.Unlock()
	return nil
}

// Clear removes every result on the service, reloads the library and
// empties the local batch.
func (e *Engine) Clear(ctx context.Context) error {
	if err := e.backend.Clear(ctx); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	e.mu.Lock()
	e.state.Batch = []Item{}
	e.state.IsProcessing = false
	e.stopPollingLocked()
	e.commitLocked()
	e.mu.Unlock()
	return e.Refresh(ctx)
}

func (e *Engine) notify(n Notice) {
	e.log.Error(n.Message, observability.String("title", n.Title))
	if e.onNotice != nil {
		e.onNotice(n)
	}
}

// commitLocked persists the current state. Write failures are logged and
// otherwise ignored.
func (e *Engine) commitLocked() {
	data, err := encodeSnapshot(e.state)
	if err == nil {
		err = e.store.Save(context.Background(), StateKey, data)
	}
	if err != nil {
		e.log.Debug("state save failed", observability.Error("error", err))
	}
	if e.onChange != nil {
		e.onChange(e.state.Clone())
	}
}

// settle runs the follow-ups of an isProcessing true->false transition.
func (e *Engine) settle(snap State, completed bool) {
	e.mu.Lock()
	ctx := e.lifetime
	e.mu.Unlock()
	_ = e.Refresh(ctx)
	if completed {
		s := snap.Summary()
		e.log.Info("batch complete",
			observability.Int("items", s.Total),
			observability.Int("success", s.Success),
			observability.Int("failed", s.Failed))
		if e.onComplete != nil {
			e.onComplete(snap)
		}
	}
}
