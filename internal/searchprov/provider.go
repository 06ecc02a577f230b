package searchprov

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// ErrCaptchaRequired reports that the engine served a robot check
// instead of results. The executor recovers by showing the surface to a
// human; adapters only detect the condition.
var ErrCaptchaRequired = errors.New("captcha verification required")

// Provider describes one search engine: how to reach it, what to run in
// the page, and how to decode the script's postback. Providers are
// stateless and perform no network I/O themselves.
type Provider interface {
	Name() string
	SearchURL(query string) string
	ExtractionScript() string
	ParseResults(raw string) ([]augment.SearchResultItem, error)
}

// ForEngine returns the adapter for an engine tag. The set is closed;
// adding an engine means adding a variant here, not branching at call
// sites.
func ForEngine(tag string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "google":
		return Google{}, nil
	case "bing":
		return Bing{}, nil
	case "baidu":
		return Baidu{}, nil
	default:
		return nil, fmt.Errorf("unknown search engine %q", tag)
	}
}

// scrapeMessage is the wire shape every extraction script posts back.
type scrapeMessage struct {
	Status  string `json:"status"`
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}

const (
	statusOK      = "ok"
	statusCaptcha = "captcha_required"
)

// parseMessage decodes a script postback and applies shared filtering:
// engine-internal links are dropped, then results are deduplicated by
// URL and by normalized title.
func parseMessage(raw string, internalHosts []string) ([]augment.SearchResultItem, error) {
	var msg scrapeMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("malformed extraction message: %w", err)
	}

	switch msg.Status {
	case statusCaptcha:
		return nil, ErrCaptchaRequired
	case statusOK:
	default:
		return nil, fmt.Errorf("unexpected extraction status %q", msg.Status)
	}

	seenURL := make(map[string]struct{})
	seenTitle := make(map[string]struct{})
	var items []augment.SearchResultItem

	for _, r := range msg.Results {
		title := strings.TrimSpace(r.Title)
		link := strings.TrimSpace(r.URL)
		if title == "" || link == "" {
			continue
		}
		if !isExternalLink(link, internalHosts) {
			continue
		}
		if _, dup := seenURL[link]; dup {
			continue
		}
		normTitle := normalizeTitle(title)
		if _, dup := seenTitle[normTitle]; dup {
			continue
		}
		seenURL[link] = struct{}{}
		seenTitle[normTitle] = struct{}{}
		items = append(items, augment.SearchResultItem{Title: title, URL: link})
	}
	return items, nil
}

// isExternalLink keeps only absolute http(s) links pointing off-engine.
func isExternalLink(link string, internalHosts []string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, internal := range internalHosts {
		if host == internal || strings.HasSuffix(host, "."+internal) {
			return false
		}
	}
	return true
}

// normalizeTitle folds case and whitespace so near-identical headlines
// dedupe.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// buildScript renders the shared extraction script for an engine. Each
// strategy pairs a heading selector with the anchor carrying the link:
// the anchor is the heading's nearest enclosing <a>, or a child <a>
// when the engine nests the link inside the heading. Strategies are
// tried in priority order with a generic heading scrape last. When the
// page shows robot-check markers, or result headings fall below a
// minimum density, the script reports captcha_required instead.
func buildScript(headingSelectors []string, captchaMarkers []string) string {
	selJSON, _ := json.Marshal(append(append([]string{}, headingSelectors...), "h3", "h2"))
	markJSON, _ := json.Marshal(captchaMarkers)

	return fmt.Sprintf(`(function() {
	var headingSelectors = %s;
	var markers = %s;
	var minHeadings = 3;

	function anchorFor(h) {
		var a = h.closest("a");
		if (a && a.getAttribute("href")) { return a; }
		a = h.querySelector("a");
		if (a && a.getAttribute("href")) { return a; }
		return null;
	}

	function collect(selector) {
		var out = [];
		var headings = document.querySelectorAll(selector);
		if (!headings) { return out; }
		for (var i = 0; i < headings.length; i++) {
			var h = headings[i];
			var a = anchorFor(h);
			if (!a) { continue; }
			var text = (h.textContent || "").replace(/\s+/g, " ").trim();
			if (text.length < 2) { continue; }
			out.push({ title: text, url: a.getAttribute("href") });
		}
		return out;
	}

	function pageLooksLikeCaptcha() {
		var body = document.querySelector("body");
		var text = body ? (body.textContent || "").toLowerCase() : "";
		for (var i = 0; i < markers.length; i++) {
			if (text.indexOf(markers[i]) !== -1) { return true; }
		}
		var headings = document.querySelectorAll("h1, h2, h3");
		return !headings || headings.length < minHeadings;
	}

	for (var i = 0; i < headingSelectors.length; i++) {
		var results = collect(headingSelectors[i]);
		if (results.length > 0) {
			return JSON.stringify({ status: "ok", results: results });
		}
	}

	if (pageLooksLikeCaptcha()) {
		return JSON.stringify({ status: "captcha_required" });
	}
	return JSON.stringify({ status: "ok", results: [] });
})()`, selJSON, markJSON)
}
