package report

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/ocrdesk/ocr"
)

// Links resolves service URLs for gallery entries. *client.Client satisfies it.
type Links interface {
	ImageURL(filename string) string
	PDFURL(stem string) string
}

// Gallery writes an HTML page with one figure per successful result, in the
// order the service returned them.
func Gallery(w io.Writer, results []ocr.ResultRecord, links Links) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)
	head := element(atom.Head)
	root.AppendChild(head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	title := element(atom.Title)
	title.AppendChild(text("OCR review gallery"))
	head.AppendChild(title)

	body := element(atom.Body)
	root.AppendChild(body)

	reviewable := ocr.Reviewable(results)
	h1 := element(atom.H1)
	h1.AppendChild(text(fmt.Sprintf("Review gallery (%d)", len(reviewable))))
	body.AppendChild(h1)

	if len(reviewable) == 0 {
		p := element(atom.P)
		p.AppendChild(text("No successful results to review."))
		body.AppendChild(p)
	}
	for i, r := range reviewable {
		body.AppendChild(figure(i+1, r, links))
	}
	return html.Render(w, doc)
}

func figure(n int, r ocr.ResultRecord, links Links) *html.Node {
	fig := element(atom.Figure, attr("id", r.Stem))
	fig.AppendChild(element(atom.Img,
		attr("src", links.ImageURL(r.OriginalFilename)),
		attr("alt", r.OriginalFilename),
		attr("loading", "lazy"),
	))

	caption := element(atom.Figcaption)
	caption.AppendChild(text(fmt.Sprintf("%d. %s", n, r.OriginalFilename)))
	if r.BlocksCount != ocr.Unavailable {
		caption.AppendChild(text(fmt.Sprintf(" (%d blocks)", r.BlocksCount)))
	}
	caption.AppendChild(text(" "))
	link := element(atom.A, attr("href", links.PDFURL(r.Stem)), attr("download", r.Stem+".pdf"))
	link.AppendChild(text("PDF"))
	caption.AppendChild(link)
	fig.AppendChild(caption)
	return fig
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute { return html.Attribute{Key: key, Val: val} }

func text(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }
