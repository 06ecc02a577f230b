package searchprov

import (
	"net/url"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// Bing scrapes bing.com result pages.
type Bing struct{}

func (Bing) Name() string { return "bing" }

func (Bing) SearchURL(query string) string {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", "10")
	return "https://www.bing.com/search?" + q.Encode()
}

func (Bing) ExtractionScript() string {
	return buildScript(
		[]string{
			"ol#b_results li.b_algo h2",
			"ol#b_results h2",
			"main h2",
		},
		[]string{
			"verify you are human",
			"suspicious activity",
			"are you a robot",
		},
	)
}

func (Bing) ParseResults(raw string) ([]augment.SearchResultItem, error) {
	return parseMessage(raw, []string{
		"bing.com",
		"microsoft.com",
		"msn.com",
	})
}
