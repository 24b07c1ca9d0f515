// Command ocrdesk submits images to an OCR-to-PDF service, follows batches to
// completion, and reviews, exports and reports on the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ocrdesk: %v\n", err)
		stop()
		os.Exit(1)
	}
}
