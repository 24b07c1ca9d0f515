package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/wudi/ocrdesk/ocr"
)

// File is one upload part. Size is used for progress reporting only; zero
// means unknown.
type File struct {
	Name string
	Data io.Reader
	Size int64
}

// ProgressFunc receives the number of file bytes sent so far and the total
// declared size of all files.
type ProgressFunc func(loaded, total int64)

// Upload posts files as one multipart request together with the batch size
// hint and returns the service's immediate results.
func (c *Client) Upload(ctx context.Context, files []File, batchSize int, progress ProgressFunc) (ocr.ResultList, error) {
	target := c.baseURL + "/upload"
	var total int64
	for _, f := range files {
		total += f.Size
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	counter := &progressCounter{total: total, fn: progress}
	go func() {
		pw.CloseWithError(writeParts(mw, files, batchSize, counter))
	}()

	resp, err := c.do(ctx, "upload", http.MethodPost, target, pr, http.Header{"Content-Type": {mw.FormDataContentType()}})
	if err != nil {
		pr.CloseWithError(err)
		return ocr.ResultList{}, err
	}
	defer resp.Body.Close()
	var out ocr.ResultList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ocr.ResultList{}, &TransportError{Op: "upload", URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

func writeParts(mw *multipart.Writer, files []File, batchSize int, counter *progressCounter) error {
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", f.Name, err)
		}
		if f.Data == nil {
			continue
		}
		if _, err := io.Copy(io.MultiWriter(part, counter), f.Data); err != nil {
			return fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := mw.WriteField("batch_size", strconv.Itoa(batchSize)); err != nil {
		return fmt.Errorf("write batch_size: %w", err)
	}
	return mw.Close()
}

type progressCounter struct {
	loaded atomic.Int64
	total  int64
	fn     ProgressFunc
}

func (p *progressCounter) Write(b []byte) (int, error) {
	n := p.loaded.Add(int64(len(b)))
	if p.fn != nil {
		p.fn(n, p.total)
	}
	return len(b), nil
}

// Percent converts a progress pair into a whole percentage in [0, 100].
func Percent(loaded, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int((loaded*100 + total/2) / total)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
