package sandbox

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOM exposes a parsed HTML document to sandboxed scripts. Queries run
// against the real node tree, so extraction scripts behave the same
// here as inside an embedded browser page.
type DOM struct {
	doc *goquery.Document
}

// NewDOM parses HTML into a queryable document.
func NewDOM(html string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &DOM{doc: doc}, nil
}

// Query returns all matches for a CSS selector in document order.
func (d *DOM) Query(selector string) []*goquery.Selection {
	return splitSelection(d.doc.Find(selector))
}

// splitSelection expands a multi-match selection into one selection per
// element so each can carry its own proxy.
func splitSelection(sel *goquery.Selection) []*goquery.Selection {
	out := make([]*goquery.Selection, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}
