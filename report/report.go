// Package report renders batch statistics as Markdown or HTML and builds a
// static review gallery of successful results.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/wudi/ocrdesk/ocr"
)

// Markdown writes a statistics summary followed by a table of results.
func Markdown(w io.Writer, stats ocr.Statistics, results []ocr.ResultRecord, generated time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# OCR batch report\n\nGenerated %s.\n\n", generated.UTC().Format(time.RFC3339))

	b.WriteString("## Statistics\n\n")
	b.WriteString("| Metric | Value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| Total files | %d |\n", stats.Total)
	fmt.Fprintf(&b, "| Successful | %d |\n", stats.Success)
	fmt.Fprintf(&b, "| Failed | %d |\n", stats.Failed)
	fmt.Fprintf(&b, "| Success rate | %s |\n", SuccessRate(stats))
	fmt.Fprintf(&b, "| Total time | %.2fs |\n", stats.TotalTime)
	fmt.Fprintf(&b, "| Average time | %.2fs |\n", stats.AvgTime)

	b.WriteString("\n## Results\n\n")
	if len(results) == 0 {
		b.WriteString("No results yet.\n")
	} else {
		sorted := append([]ocr.ResultRecord(nil), results...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OriginalFilename < sorted[j].OriginalFilename })
		b.WriteString("| File | Status | Blocks | Characters | Time | Error |\n| --- | --- | --- | --- | --- | --- |\n")
		for _, r := range sorted {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				escape(r.OriginalFilename), r.StatusOr(ocr.StatusFailed),
				count(r.BlocksCount), count(r.TextLength), seconds(r), escape(r.Error))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// HTML converts Markdown source to an HTML fragment.
func HTML(w io.Writer, markdown []byte) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	return md.Convert(markdown, w)
}

// Document renders the full report as a standalone HTML page.
func Document(w io.Writer, stats ocr.Statistics, results []ocr.ResultRecord, generated time.Time) error {
	var src bytes.Buffer
	if err := Markdown(&src, stats, results, generated); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := HTML(&body, src.Bytes()); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>OCR batch report</title></head><body>\n%s</body></html>\n", body.Bytes())
	return err
}

// SuccessRate formats the share of successful files, or "n/a" when empty.
func SuccessRate(stats ocr.Statistics) string {
	if stats.Total <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(stats.Success)*100/float64(stats.Total))
}

func count(v int) string {
	if v == ocr.Unavailable {
		return "-"
	}
	return fmt.Sprint(v)
}

func seconds(r ocr.ResultRecord) string {
	if !r.HasProcessingTime() {
		return "-"
	}
	return fmt.Sprintf("%.2fs", r.ProcessingTime)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "|", `\|`, "#", `\#`, "\n", " ",
)

func escape(s string) string { return mdEscaper.Replace(s) }
