package scripting

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/wudi/ocrdesk/ocr"
)

// Filter is a compiled boolean expression over a result record. The record is
// bound to r, with fields named as in the service's JSON, for example
// `r.status == "success" && r.blocks_count > 10`. Numeric fields the service
// did not report are null.
type Filter struct {
	expr string
	prog *goja.Program
	vm   *runner
}

// CompileFilter parses expr. An empty expression matches everything.
func CompileFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}
	prog, err := goja.Compile("where", "("+expr+")", true)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prog: prog, vm: newRunner()}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.expr }

// Match reports whether rec satisfies the filter.
func (f *Filter) Match(ctx context.Context, rec ocr.ResultRecord) (bool, error) {
	if f.prog == nil {
		return true, nil
	}
	if err := f.vm.rt.Set("r", recordObject(rec)); err != nil {
		return false, err
	}
	val, err := f.vm.run(ctx, f.prog)
	if err != nil {
		return false, fmt.Errorf("evaluate filter on %s: %w", rec.OriginalFilename, err)
	}
	return val.ToBoolean(), nil
}

// Apply returns the records that match, in order.
func (f *Filter) Apply(ctx context.Context, recs []ocr.ResultRecord) ([]ocr.ResultRecord, error) {
	out := make([]ocr.ResultRecord, 0, len(recs))
	for _, rec := range recs {
		ok, err := f.Match(ctx, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func recordObject(rec ocr.ResultRecord) map[string]interface{} {
	num := func(v float64) interface{} {
		if v == ocr.Unavailable {
			return nil
		}
		return v
	}
	count := func(v int) interface{} {
		if v == ocr.Unavailable {
			return nil
		}
		return v
	}
	return map[string]interface{}{
		"original_filename": rec.OriginalFilename,
		"status":            string(rec.Status),
		"stem":              rec.Stem,
		"timestamp":         rec.Timestamp,
		"processing_time":   num(rec.ProcessingTime),
		"blocks_count":      count(rec.BlocksCount),
		"text_length":       count(rec.TextLength),
		"error":             rec.Error,
	}
}
