package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/webaugment/internal/infrastructure/resilience"
)

var (
	// ErrUnsupportedScheme marks non-HTTP(S) URLs, rejected before any I/O.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrBodyTooLarge marks responses whose body exceeded the byte budget.
	ErrBodyTooLarge = errors.New("response body exceeds byte budget")
	// ErrReadBudget marks reads that exceeded the read-duration budget.
	ErrReadBudget = errors.New("response read exceeds time budget")
)

// Client wraps resty with rate limiting, a circuit breaker and capped
// streaming reads for page fetches.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// Options configures the shared outbound client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// RatePerSecond throttles outbound requests; zero means unlimited.
	RatePerSecond float64
}

// DefaultOptions returns settings tuned for page scraping.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// NewClient creates the outbound HTTP client used by every network path
// in the pipeline.
func NewClient(opts Options) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.New()
	restyClient.
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), int(opts.RatePerSecond))
	}

	breaker := resilience.New("http-external", resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// Content hosts vary in reliability; only trip on a sustained
			// failure streak or an overwhelming failure rate.
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
	}
}

// Resty exposes the underlying client for structured API calls
// (direct search provider, completion service).
func (c *Client) Resty() *resty.Client {
	return c.resty
}

// Page is a fetched document.
type Page struct {
	Body        []byte
	ContentType string
	FinalURL    string
	StatusCode  int
}

// ValidateURL rejects anything that is not plain http(s) before network I/O.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// FetchCapped retrieves a page with the body read bounded jointly by
// maxBytes and readBudget. The read aborts mid-stream as soon as either
// budget is exhausted; a declared Content-Length over budget fails before
// any body bytes are transferred.
func (c *Client) FetchCapped(ctx context.Context, rawURL string, maxBytes int64, readBudget time.Duration) (*Page, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, rawURL, maxBytes, readBudget)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Page), nil
}

func (c *Client) fetch(ctx context.Context, rawURL string, maxBytes int64, readBudget time.Duration) (*Page, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return nil, err
	}

	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode(), rawURL)
	}

	if cl := resp.RawResponse.ContentLength; cl > 0 && cl > maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrBodyTooLarge, cl)
	}

	body, err := readCapped(ctx, raw, maxBytes, readBudget)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	return &Page{
		Body:        body,
		ContentType: resp.Header().Get("Content-Type"),
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode(),
	}, nil
}

// readCapped drains r enforcing both budgets on every chunk boundary.
func readCapped(ctx context.Context, r io.Reader, maxBytes int64, budget time.Duration) ([]byte, error) {
	deadline := time.Now().Add(budget)
	buf := make([]byte, 32*1024)
	var out []byte

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if time.Now().After(deadline) {
			return nil, ErrReadBudget
		}

		n, err := r.Read(buf)
		if n > 0 {
			if int64(len(out)+n) > maxBytes {
				return nil, ErrBodyTooLarge
			}
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
