package fetch

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/k3a/html2text"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

const (
	// maxHTMLBytes limits parsed input to prevent memory exhaustion.
	maxHTMLBytes = 10 * 1024 * 1024

	excerptLength = 300
)

// removedSelectors strips chrome and noise before content extraction.
const removedSelectors = "script, style, nav, header, footer, aside, iframe, .ad, .advertisement, .sidebar"

// Article is the distilled content of one page. An empty Body means the
// page had no extractable main content, which is a normal outcome for
// link hubs, paywalls and media pages rather than a failure.
type Article struct {
	Title   string
	Body    string
	Excerpt string
}

// Readability extracts main article content using heuristics.
type Readability struct {
	sanitizer *bluemonday.Policy
}

// NewReadability creates an extractor with a UGC sanitization policy.
func NewReadability() *Readability {
	return &Readability{
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// Extract distills a fetched page into plain text. The content type and
// sniffed bytes gate out non-HTML payloads before any parsing.
func (r *Readability) Extract(body []byte, contentType string) Article {
	if len(body) == 0 || len(body) > maxHTMLBytes {
		return Article{}
	}
	if !isHTML(body, contentType) {
		return Article{}
	}

	doc, err := loadHTML(body)
	if err != nil {
		return Article{}
	}

	title := extractTitle(doc)
	excerpt := extractExcerpt(doc)

	doc.Find(removedSelectors).Remove()
	main := mainContent(doc)

	inner, err := main.Html()
	if err != nil {
		return Article{}
	}

	text := html2text.HTML2Text(r.sanitizer.Sanitize(inner))
	text = strings.TrimSpace(text)
	if text == "" {
		return Article{}
	}

	if excerpt == "" {
		excerpt = truncateText(normalizeWhitespace(text), excerptLength)
	}

	return Article{Title: title, Body: text, Excerpt: excerpt}
}

// isHTML checks the declared content type, falling back to sniffing.
func isHTML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	if contentType != "" {
		return false
	}
	return mimetype.Detect(body).Is("text/html")
}

// detectCharset returns the best-guess charset of raw HTML bytes.
func detectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// loadHTML parses HTML with automatic charset conversion.
func loadHTML(data []byte) (*goquery.Document, error) {
	detected := detectCharset(data)

	utf8Reader, err := charset.NewReader(bytes.NewReader(data), detected)
	if err != nil {
		// Fallback to direct parsing
		return goquery.NewDocumentFromReader(bytes.NewReader(data))
	}
	return goquery.NewDocumentFromReader(utf8Reader)
}

// mainContent finds the most likely article container.
func mainContent(doc *goquery.Document) *goquery.Selection {
	if main := doc.Find("main, article").First(); main.Length() > 0 {
		return main
	}
	if role := doc.Find("[role='main'], [role='article']").First(); role.Length() > 0 {
		return role
	}
	if content := doc.Find("#content, #main, .content, .main, .article").First(); content.Length() > 0 {
		return content
	}
	return doc.Find("body")
}

func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = doc.Find("meta[property='og:title']").AttrOr("content", "")
	}
	return normalizeWhitespace(title)
}

// extractExcerpt prefers the page's own description over body text.
func extractExcerpt(doc *goquery.Document) string {
	var excerpt string
	if desc := doc.Find("meta[name='description'], meta[property='og:description']").First(); desc.Length() > 0 {
		excerpt = desc.AttrOr("content", "")
	}
	if excerpt == "" {
		if p := doc.Find("p").First(); p.Length() > 0 {
			excerpt = p.Text()
		}
	}
	return truncateText(normalizeWhitespace(excerpt), excerptLength)
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateText truncates text to at most maxLen bytes, ellipsis
// marker included, without splitting a rune.
func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return augment.Truncate(s, maxLen-3)
}
