package reconcile

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/wudi/ocrdesk/ocr"
	"github.com/wudi/ocrdesk/persist"
)

func seed(t *testing.T, store persist.Store, data string) {
	t.Helper()
	if err := store.Save(context.Background(), StateKey, []byte(data)); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

func TestCorruptSnapshotFallsBackToDefault(t *testing.T) {
	store := persist.NewMemoryStore()
	seed(t, store, "{not json")
	b := &fakeBackend{}
	e := newEngine(t, b, store)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	st := e.State()
	if st.ActiveTab != TabUpload || len(st.Batch) != 0 || st.IsProcessing {
		t.Fatalf("expected default state, got %+v", st)
	}
	if e.Polling() {
		t.Fatalf("default state must not poll")
	}
}

func TestPartialRestoreSkipsBadFields(t *testing.T) {
	data := `{"activeTab": 5, "processingQueue": [{"id":"1-0","name":"a.png","status":"success","progress":100}], "isProcessing": "yes", "batchSize": 42}`
	got, skipped := decodeSnapshot([]byte(data), DefaultState())
	if got.ActiveTab != TabUpload {
		t.Fatalf("mistyped activeTab should be skipped, got %q", got.ActiveTab)
	}
	if len(got.Batch) != 1 || got.Batch[0].Status != ocr.StatusSuccess {
		t.Fatalf("queue not restored: %+v", got.Batch)
	}
	if got.IsProcessing {
		t.Fatalf("mistyped isProcessing should be skipped")
	}
	if got.BatchSize != MaxBatchSize {
		t.Fatalf("batch size not clamped: %d", got.BatchSize)
	}
	if want := []string{"activeTab", "isProcessing"}; !reflect.DeepEqual(skipped, want) {
		t.Fatalf("skipped = %v, want %v", skipped, want)
	}
}

func TestDecodeSnapshotRejectsNonObjects(t *testing.T) {
	for _, data := range []string{"", "null", "[]", `"text"`, "42"} {
		got, skipped := decodeSnapshot([]byte(data), DefaultState())
		if !reflect.DeepEqual(got, DefaultState()) || len(skipped) == 0 {
			t.Fatalf("decodeSnapshot(%q) = %+v, %v", data, got, skipped)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	r := rec("a.png", ocr.StatusSuccess)
	in := State{
		ActiveTab:    TabReview,
		Batch:        []Item{{ID: "1-0", Name: "a.png", Status: ocr.StatusSuccess, Progress: 100, Result: &r}, {ID: "1-1", Name: "b.png", Status: ocr.StatusProcessing, Progress: 50}},
		IsProcessing: true,
		BatchSize:    7,
	}
	data, err := encodeSnapshot(in)
	if err != nil {
		t.Fatalf("encodeSnapshot() error = %v", err)
	}
	out, skipped := decodeSnapshot(data, DefaultState())
	if len(skipped) != 0 {
		t.Fatalf("skipped fields on round trip: %v", skipped)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", out, in)
	}
}

func TestResumeAfterRestart(t *testing.T) {
	store := persist.NewMemoryStore()
	seed(t, store, `{"activeTab":"processing","isProcessing":true,"batchSize":3,"processingQueue":[
		{"id":"1-0","name":"a.png","status":"success","progress":100},
		{"id":"1-1","name":"b.png","status":"processing","progress":50},
		{"id":"1-2","name":"c.png","status":"pending","progress":0}]}`)
	b := &fakeBackend{}
	e := newEngine(t, b, store)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !e.Polling() {
		t.Fatalf("restored processing batch must resume polling")
	}

	b.setResults(rec("a.png", ocr.StatusSuccess), rec("b.png", ocr.StatusSkipped), rec("c.png", ocr.StatusFailed))
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	st := e.State()
	if st.IsProcessing || e.Polling() {
		t.Fatalf("resumed batch did not finish")
	}
	if sum := st.Summary(); sum.Completed != 3 || sum.Total != 3 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if uploads, _, _ := b.counts(); uploads != 0 {
		t.Fatalf("resume must not re-upload")
	}
}

func TestRestoredProcessingWithEmptyBatchIsInert(t *testing.T) {
	store := persist.NewMemoryStore()
	seed(t, store, `{"activeTab":"processing","isProcessing":true,"processingQueue":[]}`)
	e := newEngine(t, &fakeBackend{}, store)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if e.State().IsProcessing || e.Polling() {
		t.Fatalf("empty processing batch must not poll")
	}
}

func TestPollingLoopCompletesBatch(t *testing.T) {
	b := &fakeBackend{}
	done := make(chan State, 1)
	e := New(b, nil, WithPollInterval(5*time.Millisecond), OnComplete(func(s State) { done <- s }))
	defer e.Close()
	if _, err := e.Submit(context.Background(), files("a.png", "b.png"), 2); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	b.setResults(rec("a.png", ocr.StatusSuccess), rec("b.png", ocr.StatusSuccess))

	select {
	case st := <-done:
		if st.IsProcessing || st.Summary().Success != 2 {
			t.Fatalf("unexpected completion state: %+v", st)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("polling never completed the batch")
	}
}

func TestCloseStopsPolling(t *testing.T) {
	b := &fakeBackend{}
	e := New(b, nil, WithPollInterval(2*time.Millisecond))
	if _, err := e.Submit(context.Background(), files("a.png"), 1); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, results, _ := b.counts(); results >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("polling did not start")
		}
		time.Sleep(time.Millisecond)
	}
	e.Close()
	_, before, _ := b.counts()
	time.Sleep(20 * time.Millisecond)
	if _, after, _ := b.counts(); after != before {
		t.Fatalf("ticks after Close: %d -> %d", before, after)
	}
	if e.Polling() {
		t.Fatalf("Polling() true after Close")
	}
	if err := e.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() after Close error = %v", err)
	}
	if _, after, _ := b.counts(); after != before {
		t.Fatalf("manual tick after Close fetched")
	}
}
