package searchprov

import (
	"net/url"
	"strings"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// Baidu scrapes baidu.com result pages. Organic results link through
// the www.baidu.com/link redirector, so those URLs are kept while every
// other engine-internal link is dropped.
type Baidu struct{}

func (Baidu) Name() string { return "baidu" }

func (Baidu) SearchURL(query string) string {
	q := url.Values{}
	q.Set("wd", query)
	q.Set("rn", "10")
	return "https://www.baidu.com/s?" + q.Encode()
}

func (Baidu) ExtractionScript() string {
	return buildScript(
		[]string{
			"div#content_left h3.t",
			"div#content_left h3",
			"div.result h3",
		},
		[]string{
			"百度安全验证",
			"安全验证",
			"verify",
		},
	)
}

func (Baidu) ParseResults(raw string) ([]augment.SearchResultItem, error) {
	items, err := parseMessage(raw, []string{"bdstatic.com"})
	if err != nil {
		return nil, err
	}

	kept := items[:0]
	for _, item := range items {
		u, err := url.Parse(item.URL)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Host)
		if strings.HasSuffix(host, "baidu.com") && !strings.HasPrefix(u.Path, "/link") {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}
