package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanPollTick)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "json", "debug").With(String("corr_id", "abc"))
	log.Info("poll tick", Int("items", 3), Bool("processing", true), Duration("took", 2*time.Second), Error("err", errors.New("boom")))

	var rec map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "poll tick" || rec["corr_id"] != "abc" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["items"] != float64(3) || rec["processing"] != true || rec["err"] != "boom" {
		t.Fatalf("fields not rendered: %v", rec)
	}
}

func TestSlogLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "text", "warn")
	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filter not applied: %q", out)
	}
}

func TestNilErrorFieldDropped(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "text", "info").Info("ok", Error("err", nil))
	if strings.Contains(buf.String(), "err=") {
		t.Fatalf("nil error should be dropped: %q", buf.String())
	}
}

type recordingLogger struct {
	NopLogger
	msgs   []string
	fields [][]Field
}

func (r *recordingLogger) Debug(msg string, fields ...Field) {
	r.msgs = append(r.msgs, msg)
	r.fields = append(r.fields, fields)
}

func TestLogTracerReportsSpanOnce(t *testing.T) {
	rec := &recordingLogger{}
	tracer := NewLogTracer(rec)
	base := time.Unix(100, 0)
	calls := 0
	tracer.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}

	_, span := tracer.StartSpan(context.Background(), SpanUpload)
	span.SetTag("items", 3)
	span.SetTag("stem", "page")
	span.SetError(errors.New("boom"))
	span.Finish()
	span.Finish()

	if len(rec.msgs) != 1 || rec.msgs[0] != "span finished" {
		t.Fatalf("expected one span log, got %v", rec.msgs)
	}
	got := map[string]interface{}{}
	for _, f := range rec.fields[0] {
		got[f.Key()] = f.Value()
	}
	if got["span"] != SpanUpload || got["took"] != 250*time.Millisecond || got["items"] != 3 || got["stem"] != "page" {
		t.Fatalf("unexpected span fields %v", got)
	}
	if err, _ := got["err"].(error); err == nil || err.Error() != "boom" {
		t.Fatalf("missing span error, got %v", got["err"])
	}
}
