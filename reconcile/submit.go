package reconcile

import (
	"context"
	"fmt"

	"github.com/wudi/ocrdesk/client"
	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/ocr"
)

// uploadPlaceholderProgress is shown while the upload request is in flight
// and no progress event has arrived yet.
const uploadPlaceholderProgress = 50

// Submit creates a batch from files, starts polling and uploads the files.
// batchSize <= 0 keeps the current batch size. An empty file list or a batch
// with repeated names is rejected without touching the state.
//
// A transport failure of the upload fails every item of the batch and stops
// polling; the returned state reflects that and the error is returned.
func (e *Engine) Submit(ctx context.Context, files []client.File, batchSize int) (State, error) {
	if len(files) == 0 {
		return e.State(), ErrEmptyBatch
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, dup := seen[f.Name]; dup {
			return e.State(), fmt.Errorf("%w: %s", ErrDuplicateName, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return State{}, ErrClosed
	}
	if e.state.IsProcessing {
		snap := e.state.Clone()
		e.mu.Unlock()
		return snap, ErrBusy
	}
	if batchSize > 0 {
		e.state.BatchSize = ClampBatchSize(batchSize)
	}
	size := e.state.BatchSize
	stamp := e.nextStampLocked()
	items := make([]Item, len(files))
	for i, f := range files {
		items[i] = Item{ID: fmt.Sprintf("%d-%d", stamp, i), Name: f.Name, Status: ocr.StatusPending}
	}
	e.state.Batch = items
	e.state.IsProcessing = true
	e.state.ActiveTab = TabProcessing
	e.commitLocked()
	e.startPollingLocked()

	for i := range e.state.Batch {
		e.state.Batch[i].Status = ocr.StatusProcessing
		e.state.Batch[i].Progress = uploadPlaceholderProgress
	}
	e.commitLocked()
	e.mu.Unlock()

	e.log.Info("uploading batch", observability.Int("items", len(files)), observability.Int("batch_size", size))
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanUpload)
	defer span.Finish()
	span.SetTag("items", len(files))

	list, err := e.backend.Upload(ctx, files, size, e.uploadProgress)
	if err != nil {
		span.SetError(err)
		return e.failBatch(err), fmt.Errorf("upload batch: %w", err)
	}

	e.mu.Lock()
	e.state.Batch = applyUpload(e.state.Batch, list.Results)
	completed := e.state.IsProcessing && e.state.Done()
	if completed {
		e.finishLocked()
	}
	e.commitLocked()
	snap := e.state.Clone()
	e.mu.Unlock()

	if completed {
		e.settle(snap, true)
	} else {
		_ = e.Refresh(ctx)
	}
	return snap, nil
}

// failBatch marks every item failed after a transport failure of the upload.
func (e *Engine) failBatch(err error) State {
	e.mu.Lock()
	for i := range e.state.Batch {
		e.state.Batch[i].Status = ocr.StatusFailed
		e.state.Batch[i].Error = err.Error()
	}
	wasProcessing := e.state.IsProcessing
	e.state.IsProcessing = false
	e.stopPollingLocked()
	e.commitLocked()
	snap := e.state.Clone()
	e.mu.Unlock()

	e.notify(Notice{Title: "Upload Error", Message: fmt.Sprintf("Failed to process files: %v", err)})
	if wasProcessing {
		e.settle(snap, false)
	}
	return snap
}

// uploadProgress moves items still waiting on the upload toward 100. Events
// without a known total leave the placeholder alone.
func (e *Engine) uploadProgress(loaded, total int64) {
	if total <= 0 {
		return
	}
	pct := client.Percent(loaded, total)
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := false
	for i, it := range e.state.Batch {
		if it.Status == ocr.StatusProcessing && it.Progress != pct {
			e.state.Batch[i].Progress = pct
			changed = true
		}
	}
	if changed {
		e.commitLocked()
	}
}

func (e *Engine) nextStampLocked() int64 {
	ms := e.now().UnixMilli()
	if ms <= e.lastStamp {
		ms = e.lastStamp + 1
	}
	e.lastStamp = ms
	return ms
}

// finishLocked ends the batch after every item became terminal.
func (e *Engine) finishLocked() {
	e.state.IsProcessing = false
	e.state.ActiveTab = TabResults
	e.stopPollingLocked()
}

// applyUpload merges the upload response into items. Items are matched by
// file name; an item without a name match falls back to the record at its own
// index unless that record names another item of the batch. Unmatched items
// are left for polling.
func applyUpload(items []Item, records []ocr.ResultRecord) []Item {
	names := make(map[string]struct{}, len(items))
	for _, it := range items {
		names[it.Name] = struct{}{}
	}
	out := make([]Item, len(items))
	for i, it := range items {
		rec, ok := findByName(records, it.Name)
		if !ok && i < len(records) {
			if _, taken := names[records[i].OriginalFilename]; !taken {
				rec, ok = records[i], true
			}
		}
		if ok {
			it.Status = rec.StatusOr(ocr.StatusFailed)
			it.Progress = 100
			it.Result = &rec
		}
		out[i] = it
	}
	return out
}

func findByName(records []ocr.ResultRecord, name string) (ocr.ResultRecord, bool) {
	for _, r := range records {
		if r.OriginalFilename == name {
			return r, true
		}
	}
	return ocr.ResultRecord{}, false
}
