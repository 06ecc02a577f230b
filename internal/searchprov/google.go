package searchprov

import (
	"net/url"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// Google scrapes google.com result pages.
type Google struct{}

func (Google) Name() string { return "google" }

func (Google) SearchURL(query string) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("hl", "en")
	q.Set("num", "10")
	return "https://www.google.com/search?" + q.Encode()
}

func (Google) ExtractionScript() string {
	return buildScript(
		[]string{
			"div#search h3",
			"div#rso h3",
			"div.g h3",
		},
		[]string{
			"unusual traffic",
			"our systems have detected",
			"i'm not a robot",
			"recaptcha",
		},
	)
}

func (Google) ParseResults(raw string) ([]augment.SearchResultItem, error) {
	return parseMessage(raw, []string{
		"google.com",
		"googleusercontent.com",
		"gstatic.com",
	})
}
