package pipeline

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/GriffinCanCode/webaugment/internal/augment"
)

// directMaxResults bounds a direct API round trip; the answer is
// already distilled, so a handful of sources is plenty.
const directMaxResults = 5

// DirectProvider queries a content search API that returns distilled
// page text in a single round trip, replacing the browser search and
// fetch phases entirely.
type DirectProvider struct {
	http     *resty.Client
	endpoint string
	apiKey   string
	maxChars int
}

// NewDirectProvider creates a direct API provider.
func NewDirectProvider(http *resty.Client, endpoint, apiKey string, maxChars int) *DirectProvider {
	return &DirectProvider{
		http:     http,
		endpoint: endpoint,
		apiKey:   apiKey,
		maxChars: maxChars,
	}
}

type directRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type directResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type directResponse struct {
	Results []directResult `json:"results"`
}

// Search posts the query and maps the response into web contents.
// Results with no content are dropped rather than reported.
func (d *DirectProvider) Search(ctx context.Context, query string) ([]augment.WebContent, error) {
	var out directResponse
	resp, err := d.http.R().
		SetContext(ctx).
		SetAuthToken(d.apiKey).
		SetBody(directRequest{Query: query, MaxResults: directMaxResults}).
		SetResult(&out).
		Post(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("direct search request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("direct search returned status %d", resp.StatusCode())
	}

	contents := make([]augment.WebContent, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Content == "" || r.URL == "" {
			continue
		}
		content := r.Content
		if d.maxChars > 0 {
			content = augment.Truncate(content, d.maxChars)
		}
		contents = append(contents, augment.WebContent{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
		})
	}
	return contents, nil
}
