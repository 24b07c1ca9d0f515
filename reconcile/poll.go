package reconcile

import (
	"context"
	"time"

	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/ocr"
)

func (e *Engine) startPollingLocked() {
	if e.pollCancel != nil || e.closed {
		return
	}
	ctx, cancel := context.WithCancel(e.lifetime)
	e.pollCancel = cancel
	e.wg.Add(1)
	go e.pollLoop(ctx, e.interval)
}

func (e *Engine) stopPollingLocked() {
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
}

func (e *Engine) pollLoop(ctx context.Context, interval time.Duration) {
	defer e.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := e.Tick(ctx); err != nil {
				e.log.Debug("poll failed", observability.Error("error", err))
			}
		}
	}
}

// Tick polls the service once and merges the snapshot into the batch. It is
// a no-op unless a batch is processing or while another tick is in flight.
// A fetch error leaves the batch untouched and is returned for diagnostics
// only; polling failures never fail items.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	if !e.state.IsProcessing || e.inFlight || e.closed {
		e.mu.Unlock()
		return nil
	}
	e.inFlight = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	ctx, span := e.tracer.StartSpan(ctx, observability.SpanPollTick)
	defer span.Finish()
	list, err := e.backend.Results(ctx)
	if err != nil {
		span.SetError(err)
		return err
	}

	e.mu.Lock()
	if !e.state.IsProcessing || e.closed {
		e.mu.Unlock()
		return nil
	}
	updated, changed := applyPoll(e.state.Batch, list.Results)
	if changed {
		e.state.Batch = updated
	}
	completed := e.state.Done()
	if completed {
		e.finishLocked()
	}
	if changed || completed {
		e.commitLocked()
	}
	snap := e.state.Clone()
	e.mu.Unlock()

	if completed {
		e.settle(snap, true)
	}
	return nil
}

// applyPoll overwrites every non-terminal item that has a server record with
// the same name. Items without a match are left as they are.
func applyPoll(items []Item, records []ocr.ResultRecord) ([]Item, bool) {
	out := make([]Item, len(items))
	changed := false
	for i, it := range items {
		next := it
		if !it.Status.Terminal() {
			if rec, ok := findByName(records, it.Name); ok {
				if rec.Status != "" {
					next.Status = rec.Status
					next.Progress = 100
				}
				next.Result = &rec
			}
		}
		if !next.equal(it) {
			changed = true
		}
		out[i] = next
	}
	return out, changed
}
