package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/httpx"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/monitoring"
)

// topRanked marks how many leading candidates count as top results.
// Engines return results in relevance order, so the first three carry
// most of the answer weight.
const topRanked = 3

// Options bounds the fetch engine.
type Options struct {
	// PerURLTimeout caps each fetch task, read time included.
	PerURLTimeout time.Duration
	// MaxCharsPerResult truncates each kept body.
	MaxCharsPerResult int
	// MaxBodyBytes aborts downloads mid-stream past this size.
	MaxBodyBytes int64
	// MaxCandidates caps how many result items are fetched at all.
	MaxCandidates int
}

// DefaultOptions returns the standard fetch bounds.
func DefaultOptions() Options {
	return Options{
		PerURLTimeout:     10 * time.Second,
		MaxCharsPerResult: 4000,
		MaxBodyBytes:      2 << 20,
		MaxCandidates:     8,
	}
}

// Engine fetches search result pages concurrently and keeps a small,
// fast subset via early-exit aggregation. It never returns an error:
// per-URL failures become missing content, and total starvation is an
// empty slice.
type Engine struct {
	client  *httpx.Client
	reader  *Readability
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewEngine creates a fetch engine. Metrics may be nil.
func NewEngine(client *httpx.Client, opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Engine {
	return &Engine{
		client:  client,
		reader:  NewReadability(),
		opts:    opts,
		logger:  logger.Named("fetch"),
		metrics: metrics,
	}
}

// completion is one finished fetch task, valid or not.
type completion struct {
	index   int
	content augment.WebContent
	ok      bool
	status  string
}

// FetchContents retrieves page bodies for up to MaxCandidates items and
// returns distilled contents in completion order. Aggregation stops as
// soon as one of the early-exit rules holds:
//
//   - every top-ranked item completed with valid content: keep 3
//   - two top-ranked items completed and 4 pages are valid: keep 4
//   - 6 pages are valid regardless of top coverage: keep the first 5
//
// Ranking is assumed informative, so finishing fast beats waiting for
// slow long-tail sources. Cancellation returns whatever was collected.
func (e *Engine) FetchContents(ctx context.Context, items []augment.SearchResultItem) []augment.WebContent {
	if len(items) == 0 {
		return nil
	}
	if len(items) > e.opts.MaxCandidates {
		items = items[:e.opts.MaxCandidates]
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered to task count so abandoned tasks never block on send.
	done := make(chan completion, len(items))
	for i, item := range items {
		go func(index int, item augment.SearchResultItem) {
			done <- e.fetchOne(ctx, index, item)
		}(i, item)
	}

	var kept []augment.WebContent
	topDone := 0
	for finished := 0; finished < len(items); finished++ {
		var c completion
		select {
		case <-ctx.Done():
			e.logger.Debug("fetch cancelled", zap.Int("collected", len(kept)))
			return kept
		case c = <-done:
		}

		e.recordFetch(c.status)
		if !c.ok {
			continue
		}
		if c.index < topRanked {
			topDone++
		}
		kept = append(kept, e.truncate(c.content))

		switch {
		case topDone == topRanked && len(kept) >= 3:
			return e.finish(kept[:3], "all top results done")
		case topDone >= 2 && len(kept) >= 4:
			return e.finish(kept[:4], "top coverage with spares")
		case len(kept) >= 6:
			return e.finish(kept[:5], "volume threshold")
		}
	}
	return e.finish(kept, "all tasks finished")
}

// fetchOne retrieves and distills a single page. Every failure mode is
// absorbed into a not-ok completion.
func (e *Engine) fetchOne(ctx context.Context, index int, item augment.SearchResultItem) completion {
	ctx, cancel := context.WithTimeout(ctx, e.opts.PerURLTimeout)
	defer cancel()

	page, err := e.client.FetchCapped(ctx, item.URL, e.opts.MaxBodyBytes, e.opts.PerURLTimeout)
	if err != nil {
		e.logger.Debug("fetch failed",
			zap.String("url", item.URL),
			zap.Error(err),
		)
		return completion{index: index, status: failureStatus(err)}
	}

	article := e.reader.Extract(page.Body, page.ContentType)
	if article.Body == "" {
		return completion{index: index, status: "no_content"}
	}

	title := item.Title
	if title == "" {
		title = article.Title
	}
	return completion{
		index: index,
		content: augment.WebContent{
			Title:   title,
			URL:     item.URL,
			Content: article.Body,
			Excerpt: article.Excerpt,
		},
		ok:     true,
		status: "ok",
	}
}

// truncate caps a content body with a trailing ellipsis marker.
func (e *Engine) truncate(content augment.WebContent) augment.WebContent {
	content.Content = augment.Truncate(content.Content, e.opts.MaxCharsPerResult)
	return content
}

func (e *Engine) finish(kept []augment.WebContent, rule string) []augment.WebContent {
	if e.metrics != nil {
		e.metrics.RecordKept(len(kept))
	}
	e.logger.Debug("fetch aggregation finished",
		zap.Int("kept", len(kept)),
		zap.String("rule", rule),
	)
	return kept
}

func (e *Engine) recordFetch(status string) {
	if e.metrics != nil {
		e.metrics.RecordFetch(status)
	}
}

// failureStatus maps a fetch error onto a metric label.
func failureStatus(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, httpx.ErrReadBudget):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}
