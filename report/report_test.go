package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/ocrdesk/ocr"
)

var generated = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sample() (ocr.Statistics, []ocr.ResultRecord) {
	stats := ocr.Statistics{Total: 3, Success: 2, Failed: 1, TotalTime: 3.5, AvgTime: 1.1667}
	results := []ocr.ResultRecord{
		{OriginalFilename: "b|<tag>.png", Status: ocr.StatusSuccess, Stem: "b", ProcessingTime: 2, BlocksCount: 7, TextLength: 120},
		{OriginalFilename: "a.png", Status: ocr.StatusFailed, Stem: "a", ProcessingTime: ocr.Unavailable, BlocksCount: ocr.Unavailable, TextLength: ocr.Unavailable, Error: "bad image"},
		{OriginalFilename: "c.png", Status: ocr.StatusSuccess, Stem: "c", ProcessingTime: 1.5, BlocksCount: 2, TextLength: 10},
	}
	return stats, results
}

func TestMarkdown(t *testing.T) {
	stats, results := sample()
	var buf bytes.Buffer
	if err := Markdown(&buf, stats, results, generated); err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Generated 2024-05-01T12:00:00Z.",
		"| Success rate | 66.7% |",
		"| Average time | 1.17s |",
		"| a.png | failed | - | - | - | bad image |",
		`| b\|\<tag\>.png | success | 7 | 120 | 2.00s |  |`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "a.png") > strings.Index(out, "c.png") {
		t.Fatalf("results not sorted by filename:\n%s", out)
	}
}

func TestDocumentRendersTables(t *testing.T) {
	stats, results := sample()
	var buf bytes.Buffer
	if err := Document(&buf, stats, results, generated); err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<table>") || !strings.Contains(out, "<h2>Statistics</h2>") {
		t.Fatalf("expected rendered tables:\n%s", out)
	}
	if !strings.Contains(out, "b|&lt;tag&gt;.png") {
		t.Fatalf("filename not escaped:\n%s", out)
	}
	if strings.Contains(out, "<tag>") {
		t.Fatalf("raw filename leaked into html")
	}
}

func TestSuccessRate(t *testing.T) {
	if got := SuccessRate(ocr.Statistics{}); got != "n/a" {
		t.Fatalf("SuccessRate(empty) = %s", got)
	}
	if got := SuccessRate(ocr.Statistics{Total: 4, Success: 1}); got != "25.0%" {
		t.Fatalf("SuccessRate() = %s", got)
	}
}

type links struct{}

func (links) ImageURL(name string) string { return "http://svc/api/image/" + name }
func (links) PDFURL(stem string) string   { return "http://svc/api/pdf/" + stem }

func collect(n *html.Node, a atom.Atom, out *[]*html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == a {
		*out = append(*out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, a, out)
	}
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestGalleryListsSuccessfulResults(t *testing.T) {
	_, results := sample()
	var buf bytes.Buffer
	if err := Gallery(&buf, results, links{}); err != nil {
		t.Fatalf("Gallery() error = %v", err)
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}
	var imgs, anchors []*html.Node
	collect(doc, atom.Img, &imgs)
	collect(doc, atom.A, &anchors)
	if len(imgs) != 2 || len(anchors) != 2 {
		t.Fatalf("expected 2 figures, got %d images and %d links", len(imgs), len(anchors))
	}
	if got := attrVal(imgs[0], "src"); got != "http://svc/api/image/b|<tag>.png" {
		t.Fatalf("first image src = %q", got)
	}
	if got := attrVal(anchors[1], "href"); got != "http://svc/api/pdf/c" {
		t.Fatalf("second pdf link = %q", got)
	}
}

func TestGalleryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Gallery(&buf, nil, links{}); err != nil {
		t.Fatalf("Gallery() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No successful results to review.") {
		t.Fatalf("missing empty message:\n%s", buf.String())
	}
}
