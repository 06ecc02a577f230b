// Package pipeline runs the web augmentation flow end to end: classify
// the user turn, search, fetch page contents and assemble the augmented
// prompt. Every failure inside the pipeline degrades to "no
// augmentation" so a broken search never breaks the conversation.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/browser"
	"github.com/GriffinCanCode/webaugment/internal/fetch"
	"github.com/GriffinCanCode/webaugment/internal/httpx"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webaugment/internal/intent"
	"github.com/GriffinCanCode/webaugment/internal/prompt"
	"github.com/GriffinCanCode/webaugment/internal/searchprov"
)

// Searcher resolves a query into ranked result items for one engine.
type Searcher interface {
	Search(ctx context.Context, engine, query string) ([]augment.SearchResultItem, error)
}

// BrowserSearcher runs searches through the browser executor.
type BrowserSearcher struct {
	executor *browser.Executor
}

// NewBrowserSearcher wraps an executor.
func NewBrowserSearcher(executor *browser.Executor) *BrowserSearcher {
	return &BrowserSearcher{executor: executor}
}

// Search resolves the engine adapter and drives the executor.
func (b *BrowserSearcher) Search(ctx context.Context, engine, query string) ([]augment.SearchResultItem, error) {
	provider, err := searchprov.ForEngine(engine)
	if err != nil {
		return nil, err
	}
	return b.executor.Search(ctx, provider, query)
}

// Options tunes a single Execute call.
type Options struct {
	// OnPhase, when set, receives each phase label as it starts.
	OnPhase func(augment.Phase)
	// Engine overrides the configured default engine for this call.
	Engine string
}

// Params wires a Service.
type Params struct {
	Analyzer *intent.Analyzer
	Searcher Searcher
	// Direct, when set, replaces the search and fetch phases with a
	// single call to the direct content API.
	Direct        *DirectProvider
	Fetcher       *fetch.Engine
	Logger        *logging.Logger
	Metrics       *monitoring.Metrics
	DefaultEngine string
}

// Service orchestrates the augmentation phases. It owns no shared
// mutable state: each Execute call carries its own task set, and the
// browser surface serializes itself underneath the Searcher.
type Service struct {
	analyzer      *intent.Analyzer
	searcher      Searcher
	direct        *DirectProvider
	fetcher       *fetch.Engine
	logger        *logging.Logger
	metrics       *monitoring.Metrics
	defaultEngine string
}

// New creates the pipeline service.
func New(p Params) *Service {
	return &Service{
		analyzer:      p.Analyzer,
		searcher:      p.Searcher,
		direct:        p.Direct,
		fetcher:       p.Fetcher,
		logger:        p.Logger.Named("pipeline"),
		metrics:       p.Metrics,
		defaultEngine: p.DefaultEngine,
	}
}

// Execute runs the full pipeline for one user turn. A nil result means
// the turn proceeds without web context, whether because no search was
// needed, the caller cancelled, or every source failed. Execute never
// returns an error.
func (s *Service) Execute(ctx context.Context, userMessage string, history []augment.Message, opts Options) *augment.Result {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))

	verdict := s.analyze(ctx, userMessage, history, opts)
	if ctx.Err() != nil {
		return s.outcome(logger, "cancelled")
	}
	if !verdict.NeedsSearch {
		logger.Debug("no search needed")
		return s.outcome(logger, "skipped")
	}
	query := verdict.Query()

	contents := s.gather(ctx, logger, verdict, opts)
	if ctx.Err() != nil {
		return s.outcome(logger, "cancelled")
	}
	if len(contents) == 0 {
		logger.Info("no usable web content", zap.String("query", query))
		return s.outcome(logger, "failed")
	}

	done := s.enterPhase(opts, augment.PhaseBuilding)
	augmentedPrompt, citations := prompt.Build(userMessage, contents)
	done()

	if s.metrics != nil {
		s.metrics.RecordSearch("augmented")
	}
	logger.Info("augmentation complete",
		zap.String("query", query),
		zap.Int("citations", len(citations)),
	)
	return &augment.Result{
		AugmentedPrompt: augmentedPrompt,
		Citations:       citations,
	}
}

func (s *Service) analyze(ctx context.Context, userMessage string, history []augment.Message, opts Options) augment.SearchIntent {
	done := s.enterPhase(opts, augment.PhaseAnalyzing)
	defer done()
	return s.analyzer.Analyze(ctx, userMessage, history)
}

// gather produces web contents either through the direct content API
// or through the browser search plus fetch path.
func (s *Service) gather(ctx context.Context, logger *logging.Logger, verdict augment.SearchIntent, opts Options) []augment.WebContent {
	if s.direct != nil {
		return s.gatherDirect(ctx, logger, verdict.Query(), opts)
	}

	engine := opts.Engine
	if engine == "" {
		engine = s.defaultEngine
	}

	done := s.enterPhase(opts, augment.PhaseSearching)
	items, err := s.searcher.Search(ctx, engine, verdict.Query())
	done()
	if err != nil {
		// Links the user named explicitly can still salvage the turn.
		logger.Warn("search failed",
			zap.String("engine", engine),
			zap.Error(err),
		)
		items = nil
	}

	// URLs mentioned by the user outrank engine results.
	items = append(linkItems(verdict.Links), items...)
	if len(items) == 0 {
		return nil
	}

	done = s.enterPhase(opts, augment.PhaseFetching)
	defer done()
	return s.fetcher.FetchContents(ctx, items)
}

// linkItems turns user-mentioned URLs into fetch candidates, dropping
// anything that is not plain http(s).
func linkItems(links []string) []augment.SearchResultItem {
	items := make([]augment.SearchResultItem, 0, len(links))
	for _, link := range links {
		if httpx.ValidateURL(link) != nil {
			continue
		}
		items = append(items, augment.SearchResultItem{URL: link})
	}
	return items
}

// gatherDirect is the single-round-trip path: the API returns already
// distilled content, so the fetch phase is skipped entirely.
func (s *Service) gatherDirect(ctx context.Context, logger *logging.Logger, query string, opts Options) []augment.WebContent {
	done := s.enterPhase(opts, augment.PhaseSearching)
	defer done()

	refined := s.analyzer.RefineQuery(ctx, query)
	contents, err := s.direct.Search(ctx, refined)
	if err != nil {
		logger.Warn("direct search failed", zap.Error(err))
		return nil
	}
	return contents
}

// enterPhase reports the phase to the caller and returns a closure
// recording its duration.
func (s *Service) enterPhase(opts Options, phase augment.Phase) func() {
	if opts.OnPhase != nil {
		opts.OnPhase(phase)
	}
	start := time.Now()
	return func() {
		if s.metrics != nil {
			s.metrics.RecordPhase(string(phase), time.Since(start))
		}
	}
}

func (s *Service) outcome(logger *logging.Logger, outcome string) *augment.Result {
	if s.metrics != nil {
		s.metrics.RecordSearch(outcome)
	}
	logger.Debug("pipeline finished without augmentation", zap.String("outcome", outcome))
	return nil
}
