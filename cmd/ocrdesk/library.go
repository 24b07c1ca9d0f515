package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wudi/ocrdesk/artifacts"
	"github.com/wudi/ocrdesk/ocr"
	"github.com/wudi/ocrdesk/report"
	"github.com/wudi/ocrdesk/scripting"
)

func (a *app) resultsCmd() *cobra.Command {
	var (
		where  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List every result stored on the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := scripting.CompileFilter(where)
			if err != nil {
				return err
			}
			list, err := a.client.Results(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := filter.Apply(cmd.Context(), list.Results)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ocr.ResultList{Results: recs})
			}
			printResults(a.stdout, recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&where, "where", "", "JavaScript filter over each record r, e.g. 'r.status == \"failed\"'")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the records as JSON")
	return cmd
}

func printResults(w io.Writer, recs []ocr.ResultRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tSTEM\tBLOCKS\tCHARS\tTIME\tERROR")
	for _, r := range recs {
		blocks, chars, secs := "-", "-", "-"
		if r.BlocksCount != ocr.Unavailable {
			blocks = fmt.Sprint(r.BlocksCount)
		}
		if r.TextLength != ocr.Unavailable {
			chars = fmt.Sprint(r.TextLength)
		}
		if r.HasProcessingTime() {
			secs = fmt.Sprintf("%.2fs", r.ProcessingTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.OriginalFilename, r.StatusOr(ocr.StatusFailed), r.Stem, blocks, chars, secs, r.Error)
	}
	_ = tw.Flush()
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show service-wide processing statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Total files:   %d\n", st.Total)
			fmt.Fprintf(a.stdout, "Successful:    %d\n", st.Success)
			fmt.Fprintf(a.stdout, "Failed:        %d\n", st.Failed)
			fmt.Fprintf(a.stdout, "Success rate:  %s\n", report.SuccessRate(st))
			fmt.Fprintf(a.stdout, "Total time:    %.2fs\n", st.TotalTime)
			fmt.Fprintf(a.stdout, "Average time:  %.2fs\n", st.AvgTime)
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every result on the service and empty the local queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			e := a.engine()
			defer e.Close()
			e.Restore(cmd.Context())
			if err := e.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Cleared all results.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all results")
	return cmd
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(doc))
			for k := range doc {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(a.stdout, "%s: %v\n", k, doc[k])
			}
			return nil
		},
	}
}

func (a *app) downloadCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "download [STEM...]",
		Short: "Save searchable PDFs to the configured artifact store",
		Long: "Save the PDF of each STEM, or of every successful result when no STEM is given.\n" +
			"With --all the service's ZIP archive of every PDF is saved instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sink, err := a.sink()
			if err != nil {
				return err
			}
			exp := artifacts.NewExporter(a.client, sink,
				artifacts.WithLogger(a.log), artifacts.WithTracer(a.tracer), artifacts.WithClock(a.now))
			if all {
				loc, err := exp.ExportAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, loc)
				return nil
			}
			stems := args
			if len(stems) == 0 {
				list, err := a.client.Results(ctx)
				if err != nil {
					return err
				}
				for _, r := range ocr.Reviewable(list.Results) {
					stems = append(stems, r.Stem)
				}
			}
			if len(stems) == 0 {
				fmt.Fprintln(a.stdout, "No successful results to download.")
				return nil
			}
			locs, err := exp.ExportPDFs(ctx, stems)
			for _, loc := range locs {
				fmt.Fprintln(a.stdout, loc)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Save the archive of every PDF")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a statistics report as Markdown, or HTML when --out ends in .html",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			list, err := a.client.Results(ctx)
			if err != nil {
				return err
			}
			st, err := a.client.Stats(ctx)
			if err != nil {
				return err
			}
			return a.writeOutput(out, func(w io.Writer) error {
				switch strings.ToLower(filepath.Ext(out)) {
				case ".html", ".htm":
					return report.Document(w, st, list.Results, a.now())
				default:
					return report.Markdown(w, st, list.Results, a.now())
				}
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "-", "Output file, - for stdout")
	return cmd
}

func (a *app) galleryCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Write an HTML page linking every successful page image and PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.client.Results(cmd.Context())
			if err != nil {
				return err
			}
			return a.writeOutput(out, func(w io.Writer) error {
				return report.Gallery(w, list.Results, a.client)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "gallery.html", "Output file, - for stdout")
	return cmd
}

func (a *app) writeOutput(path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(a.stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "wrote %s\n", path)
	return nil
}
