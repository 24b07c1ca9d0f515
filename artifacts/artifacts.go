// Package artifacts saves downloaded PDFs and archives to a local directory
// or an S3-compatible bucket.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/wudi/ocrdesk/observability"
)

// ErrInvalidName is returned for object names that would escape the sink root.
var ErrInvalidName = errors.New("artifacts: invalid object name")

// Sink stores a named object and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Source streams artifacts from the OCR service. *client.Client satisfies it.
type Source interface {
	PDF(ctx context.Context, stem string) (io.ReadCloser, error)
	DownloadAll(ctx context.Context) (io.ReadCloser, error)
}

const (
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"
)

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, `\`) {
		return "", ErrInvalidName
	}
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", ErrInvalidName
	}
	return clean, nil
}

// PDFName is the object name used for a stem's searchable PDF.
func PDFName(stem string) string { return stem + ".pdf" }

// ArchiveName is the object name used for a full archive taken at t.
func ArchiveName(t time.Time) string { return fmt.Sprintf("all_pdfs_%d.zip", t.UnixMilli()) }

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

func WithLogger(l observability.Logger) ExporterOption {
	return func(e *Exporter) {
		if l != nil {
			e.log = l
		}
	}
}

func WithTracer(t observability.Tracer) ExporterOption {
	return func(e *Exporter) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// Exporter copies artifacts from a Source into a Sink.
type Exporter struct {
	src    Source
	sink   Sink
	log    observability.Logger
	tracer observability.Tracer
	now    func() time.Time
}

func NewExporter(src Source, sink Sink, opts ...ExporterOption) *Exporter {
	e := &Exporter{src: src, sink: sink, log: observability.NopLogger{}, tracer: observability.NopTracer(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportPDFs saves the PDF of every stem. A failed stem does not stop the
// rest; the returned error joins all failures.
func (e *Exporter) ExportPDFs(ctx context.Context, stems []string) ([]string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, stem := range stems {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		loc, err := e.save(ctx, PDFName(stem), ContentTypePDF, func(ctx context.Context) (io.ReadCloser, error) {
			return e.src.PDF(ctx, stem)
		})
		if err != nil {
			e.log.Warn("export pdf failed", observability.String("stem", stem), observability.Error("err", err))
			errs = append(errs, fmt.Errorf("%s: %w", stem, err))
			continue
		}
		locations = append(locations, loc)
	}
	return locations, errors.Join(errs...)
}

// ExportAll saves the service's archive of every PDF.
func (e *Exporter) ExportAll(ctx context.Context) (string, error) {
	return e.save(ctx, ArchiveName(e.now()), ContentTypeZIP, e.src.DownloadAll)
}

func (e *Exporter) save(ctx context.Context, name, contentType string, open func(context.Context) (io.ReadCloser, error)) (string, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanArtifactSave)
	defer span.Finish()
	span.SetTag("name", name)

	rc, err := open(ctx)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	defer rc.Close()
	loc, err := e.sink.Put(ctx, name, rc, -1, contentType)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	e.log.Info("artifact saved", observability.String("name", name), observability.String("location", loc))
	return loc, nil
}
