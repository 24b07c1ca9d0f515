package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/wudi/ocrdesk/client"
	"github.com/wudi/ocrdesk/ocr"
)

type fakeBackend struct {
	mu          sync.Mutex
	uploadResp  ocr.ResultList
	uploadErr   error
	results     []ocr.ResultRecord
	resultsErr  error
	stats       ocr.Statistics
	uploads     int
	resultCalls int
	statsCalls  int
	clears      int
	lastBatch   int
}

func (f *fakeBackend) Upload(ctx context.Context, files []client.File, batchSize int, progress client.ProgressFunc) (ocr.ResultList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	f.lastBatch = batchSize
	if progress != nil {
		progress(10, 10)
	}
	return f.uploadResp, f.uploadErr
}

func (f *fakeBackend) Results(ctx context.Context) (ocr.ResultList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultCalls++
	if f.resultsErr != nil {
		return ocr.ResultList{}, f.resultsErr
	}
	return ocr.ResultList{Results: append([]ocr.ResultRecord(nil), f.results...)}, nil
}

func (f *fakeBackend) Stats(ctx context.Context) (ocr.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	return f.stats, nil
}

func (f *fakeBackend) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.results = nil
	return nil
}

func (f *fakeBackend) setResults(recs ...ocr.ResultRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = recs
}

func (f *fakeBackend) setResultsErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resultsErr = err
}

func (f *fakeBackend) counts() (uploads, results, stats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.resultCalls, f.statsCalls
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func rec(name string, status ocr.Status) ocr.ResultRecord {
	return ocr.ResultRecord{OriginalFilename: name, Status: status, Stem: name, ProcessingTime: 1, BlocksCount: 1, TextLength: 1}
}

func files(names ...string) []client.File {
	out := make([]client.File, len(names))
	for i, n := range names {
		out[i] = client.File{Name: n}
	}
	return out
}

func statuses(s State) []ocr.Status {
	out := make([]ocr.Status, len(s.Batch))
	for i, it := range s.Batch {
		out[i] = it.Status
	}
	return out
}
