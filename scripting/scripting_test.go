package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wudi/ocrdesk/ocr"
)

func records() []ocr.ResultRecord {
	return []ocr.ResultRecord{
		{OriginalFilename: "a.png", Status: ocr.StatusSuccess, Stem: "a", ProcessingTime: 1.5, BlocksCount: 12, TextLength: 300},
		{OriginalFilename: "b.png", Status: ocr.StatusFailed, Stem: "b", ProcessingTime: ocr.Unavailable, BlocksCount: ocr.Unavailable, TextLength: ocr.Unavailable, Error: "timeout"},
		{OriginalFilename: "c.png", Status: ocr.StatusSuccess, Stem: "c", ProcessingTime: 0.2, BlocksCount: 3, TextLength: 40},
	}
}

func stems(recs []ocr.ResultRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Stem)
	}
	return out
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"a", "b", "c"}},
		{`r.status == "success"`, []string{"a", "c"}},
		{`r.blocks_count > 10`, []string{"a"}},
		{`r.processing_time === null`, []string{"b"}},
		{`r.error.indexOf("time") >= 0`, []string{"b"}},
		{`r.original_filename.endsWith(".png") && r.text_length < 100`, []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := CompileFilter(tt.expr)
			if err != nil {
				t.Fatalf("CompileFilter() error = %v", err)
			}
			got, err := f.Apply(context.Background(), records())
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if s := stems(got); len(s) != len(tt.want) || (len(s) > 0 && !equal(s, tt.want)) {
				t.Fatalf("Apply(%q) = %v, want %v", tt.expr, s, tt.want)
			}
		})
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompileFilterRejectsSyntaxErrors(t *testing.T) {
	if _, err := CompileFilter(`r.status ==`); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestFilterRuntimeError(t *testing.T) {
	f, err := CompileFilter(`r.missing.field`)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}
	if _, err := f.Apply(context.Background(), records()); err == nil {
		t.Fatalf("expected runtime error")
	}
}

func TestFilterHonoursContext(t *testing.T) {
	f, err := CompileFilter(`(function(){ while (true) {} })()`)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Match(ctx, records()[0]); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestFilterRecoversAfterInterrupt(t *testing.T) {
	f, err := CompileFilter(`r.blocks_count > 5 ? (function(){ while (true) {} })() : true`)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}
	recs := records()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Match(ctx, recs[0]); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	ok, err := f.Match(context.Background(), recs[2])
	if err != nil {
		t.Fatalf("Match() after interrupt error = %v", err)
	}
	if !ok {
		t.Fatalf("expected c.png to match")
	}
}

func TestFilterCancelledBeforeRun(t *testing.T) {
	f, err := CompileFilter(`true`)
	if err != nil {
		t.Fatalf("CompileFilter() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Match(ctx, records()[0]); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}
