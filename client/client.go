// Package client talks to the OCR-to-PDF conversion service over HTTP.
//
// Every failure, whether the request never completed, the service answered
// with a non-2xx status, or the body could not be decoded, is reported as a
// *TransportError so callers can tell transport trouble from job outcomes.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/ocrdesk/observability"
	"github.com/wudi/ocrdesk/ocr"
)

// Client is a thin typed wrapper over the service's REST endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	log        observability.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(l observability.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides the clock used for cache-busting parameters.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a client for the service rooted at baseURL, e.g.
// "http://localhost:5000/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		now:        time.Now,
		log:        observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Health returns the service's health document.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.getJSON(ctx, "health", "/health", false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Results fetches every result the service currently stores, not only those
// of the caller's batch.
func (c *Client) Results(ctx context.Context) (ocr.ResultList, error) {
	var out ocr.ResultList
	if err := c.getJSON(ctx, "results", "/results", true, &out); err != nil {
		return ocr.ResultList{}, err
	}
	return out, nil
}

// Result fetches the region detail for one stem.
func (c *Client) Result(ctx context.Context, stem string) (ocr.DetailRecord, error) {
	var out ocr.DetailRecord
	if err := c.getJSON(ctx, "result", "/result/"+url.PathEscape(stem), true, &out); err != nil {
		return ocr.DetailRecord{}, err
	}
	if out.Stem == "" {
		out.Stem = stem
	}
	return out, nil
}

// Stats fetches the service's aggregate counters.
func (c *Client) Stats(ctx context.Context) (ocr.Statistics, error) {
	var out ocr.Statistics
	if err := c.getJSON(ctx, "stats", "/stats", true, &out); err != nil {
		return ocr.Statistics{}, err
	}
	return out, nil
}

// Clear removes every stored result on the service.
func (c *Client) Clear(ctx context.Context) error {
	resp, err := c.do(ctx, "clear", http.MethodPost, c.baseURL+"/clear", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// PDF streams the generated PDF for stem. The caller closes the reader.
func (c *Client) PDF(ctx context.Context, stem string) (io.ReadCloser, error) {
	return c.stream(ctx, "pdf", c.PDFURL(stem))
}

// DownloadAll streams the archive of every generated PDF.
func (c *Client) DownloadAll(ctx context.Context) (io.ReadCloser, error) {
	return c.stream(ctx, "download-all", c.DownloadAllURL())
}

// Image streams the original uploaded image.
func (c *Client) Image(ctx context.Context, filename string) (io.ReadCloser, error) {
	return c.stream(ctx, "image", c.ImageURL(filename))
}

func (c *Client) PDFURL(stem string) string { return c.baseURL + "/pdf/" + url.PathEscape(stem) }

func (c *Client) ImageURL(filename string) string {
	return c.baseURL + "/image/" + url.PathEscape(filename)
}

func (c *Client) DownloadAllURL() string { return c.baseURL + "/download-all" }

func (c *Client) stream(ctx context.Context, op, target string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, op, http.MethodGet, target, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, noCache bool, out interface{}) error {
	target := c.baseURL + path
	var header http.Header
	if noCache {
		target += "?" + url.Values{"_ts": {strconv.FormatInt(c.now().UnixMilli(), 10)}}.Encode()
		header = http.Header{"Cache-Control": {"no-cache"}}
	}
	resp, err := c.do(ctx, op, http.MethodGet, target, nil, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do issues one request and returns the response only for 2xx statuses.
func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", observability.String("op", op), observability.Error("error", err))
		return nil, &TransportError{Op: op, URL: target, Err: err}
	}
	c.log.Debug("request done",
		observability.String("op", op),
		observability.Int("status", resp.StatusCode),
		observability.Duration("took", c.now().Sub(start)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &TransportError{Op: op, URL: target, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return resp, nil
}
