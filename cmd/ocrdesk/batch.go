package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wudi/ocrdesk/client"
	"github.com/wudi/ocrdesk/ocr"
	"github.com/wudi/ocrdesk/reconcile"
)

func (a *app) submitCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "submit FILE...",
		Short: "Upload files as one batch and follow it until every file is done",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, closeAll, err := openFiles(args)
			if err != nil {
				return err
			}
			defer closeAll()
			size := a.cfg.BatchSize
			if cmd.Flags().Changed("batch-size") {
				size = batchSize
			}
			return a.runBatch(cmd.Context(), func(ctx context.Context, e *reconcile.Engine) (reconcile.State, error) {
				s, err := e.Submit(ctx, files, size)
				if errors.Is(err, reconcile.ErrBusy) {
					return s, fmt.Errorf("a batch is still processing; run `ocrdesk resume` to follow it")
				}
				return s, err
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Files the service processes in parallel (1-10); 0 keeps the saved setting")
	return cmd
}

func (a *app) resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Follow a batch left processing by an earlier run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBatch(cmd.Context(), func(_ context.Context, e *reconcile.Engine) (reconcile.State, error) {
				s := e.State()
				if !s.IsProcessing {
					fmt.Fprintln(a.stdout, "No batch in progress.")
				}
				return s, nil
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted batch without contacting the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := a.engine()
			defer e.Close()
			s := e.Restore(cmd.Context())
			state := "idle"
			if s.IsProcessing {
				state = "processing"
			}
			fmt.Fprintf(a.stdout, "Batch: %s, view %s, batch size %d\n", state, s.ActiveTab, s.BatchSize)
			a.printBatch(s)
			return nil
		},
	}
}

// runBatch starts an engine, runs begin, and waits for the batch to settle or
// for ctx to end.
func (a *app) runBatch(ctx context.Context, begin func(context.Context, *reconcile.Engine) (reconcile.State, error)) error {
	prog := newProgress(a.stdout)
	done := make(chan reconcile.State, 1)
	e := a.engine(
		reconcile.OnChange(prog.update),
		reconcile.OnComplete(func(s reconcile.State) {
			select {
			case done <- s:
			default:
			}
		}),
		reconcile.OnNotice(func(n reconcile.Notice) {
			fmt.Fprintf(a.stderr, "%s: %s\n", n.Title, n.Message)
		}),
	)
	defer e.Close()

	if err := e.Start(ctx); err != nil {
		return err
	}
	state, err := begin(ctx, e)
	if err != nil {
		prog.finish()
		return err
	}
	if state.IsProcessing {
		select {
		case state = <-done:
		case <-ctx.Done():
			prog.finish()
			fmt.Fprintln(a.stdout, "Interrupted. The service keeps processing; run `ocrdesk resume` to follow the batch.")
			return nil
		}
	}
	prog.finish()
	if len(state.Batch) > 0 {
		a.printBatch(state)
	}
	return nil
}

func (a *app) printBatch(s reconcile.State) {
	if len(s.Batch) == 0 {
		fmt.Fprintln(a.stdout, "Queue is empty.")
		return
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tSTATUS\tPROGRESS\tDETAIL")
	for _, it := range s.Batch {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%s\n", it.ID, it.Name, it.Status, it.Progress, itemDetail(it))
	}
	_ = tw.Flush()
	sum := s.Summary()
	fmt.Fprintf(a.stdout, "Total %d, success %d, failed %d, skipped %d, pending %d\n",
		sum.Total, sum.Success, sum.Failed, sum.Skipped, sum.Pending)
}

func itemDetail(it reconcile.Item) string {
	switch it.Status {
	case ocr.StatusFailed:
		return it.FailureReason()
	case ocr.StatusSuccess:
		if it.Result != nil && it.Result.BlocksCount != ocr.Unavailable {
			return fmt.Sprintf("%d blocks", it.Result.BlocksCount)
		}
	}
	return ""
}

func openFiles(paths []string) ([]client.File, func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	files := make([]client.File, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open %s: %w", p, err)
		}
		opened = append(opened, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", p)
		}
		files = append(files, client.File{Name: filepath.Base(p), Data: f, Size: info.Size()})
	}
	return files, closeAll, nil
}

// progress prints batch progress, redrawing one line in place on terminals
// and printing a line per completed file otherwise.
type progress struct {
	mu    sync.Mutex
	w     io.Writer
	tty   bool
	width int
	last  string
}

func newProgress(w io.Writer) *progress {
	p := &progress{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

func (p *progress) update(s reconcile.State) {
	if len(s.Batch) == 0 {
		return
	}
	line := progressLine(s, p.tty)
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	if !p.tty {
		fmt.Fprintln(p.w, line)
		return
	}
	if p.width > 1 && len(line) >= p.width {
		line = line[:p.width-1]
	}
	fmt.Fprintf(p.w, "\r\033[K%s", line)
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.last != "" {
		fmt.Fprintln(p.w)
	}
	p.last = ""
}

func progressLine(s reconcile.State, detailed bool) string {
	sum := s.Summary()
	line := fmt.Sprintf("%d/%d done (%d ok, %d failed)", sum.Completed, sum.Total, sum.Success, sum.Failed)
	if !detailed {
		return line
	}
	pct := 0
	for _, it := range s.Batch {
		pct += it.Progress
	}
	pct /= len(s.Batch)
	const width = 20
	filled := pct * width / 100
	return fmt.Sprintf("[%s%s] %3d%% %s", strings.Repeat("#", filled), strings.Repeat(".", width-filled), pct, line)
}
