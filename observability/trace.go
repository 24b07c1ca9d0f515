package observability

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LogTracer reports every finished span as a debug log line carrying its
// duration, tags and error.
type LogTracer struct {
	log Logger
	now func() time.Time
}

func NewLogTracer(l Logger) *LogTracer {
	if l == nil {
		l = NopLogger{}
	}
	return &LogTracer{log: l, now: time.Now}
}

func (t *LogTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &logSpan{tracer: t, name: name, start: t.now()}
}

type logSpan struct {
	tracer *LogTracer
	name   string
	start  time.Time

	mu       sync.Mutex
	tags     []Field
	err      error
	finished bool
}

func (s *logSpan) SetTag(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f Field
	switch v := value.(type) {
	case string:
		f = String(key, v)
	case int:
		f = Int(key, v)
	case bool:
		f = Bool(key, v)
	case time.Duration:
		f = Duration(key, v)
	default:
		f = String(key, fmt.Sprint(v))
	}
	s.tags = append(s.tags, f)
}

func (s *logSpan) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Finish logs the span once; later calls are ignored.
func (s *logSpan) Finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	fields := append([]Field{String("span", s.name), Duration("took", s.tracer.now().Sub(s.start))}, s.tags...)
	if s.err != nil {
		fields = append(fields, Error("err", s.err))
	}
	s.mu.Unlock()
	s.tracer.log.Debug("span finished", fields...)
}
