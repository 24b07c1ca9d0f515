// Package scripting evaluates JavaScript expressions with goja. It backs the
// result filters of the command line.
package scripting

import (
	"context"

	"github.com/dop251/goja"
)

// runner wraps one goja runtime. It is not safe for concurrent use.
type runner struct {
	rt *goja.Runtime
}

func newRunner() *runner {
	return &runner{rt: goja.New()}
}

// run executes prog, interrupting the runtime when ctx ends and mapping the
// interrupt back to the context error.
func (v *runner) run(ctx context.Context, prog *goja.Program) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer v.rt.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			v.rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := v.rt.RunProgram(prog)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}
