// Package server wires the augmentation pipeline behind an HTTP facade.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webaugment/internal/browser"
	"github.com/GriffinCanCode/webaugment/internal/completion"
	"github.com/GriffinCanCode/webaugment/internal/fetch"
	"github.com/GriffinCanCode/webaugment/internal/httpx"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/config"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webaugment/internal/intent"
	"github.com/GriffinCanCode/webaugment/internal/pipeline"
)

// Server wraps the HTTP server and pipeline dependencies.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	surface *browser.Headless
}

// NewServer builds the full pipeline from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing augmentation server",
		zap.String("port", cfg.Server.Port),
		zap.String("engine", cfg.Search.Engine),
		zap.Bool("direct_api", cfg.Search.DirectAPIKey != ""),
	)

	metrics := monitoring.NewMetrics()
	client := httpx.NewClient(httpx.DefaultOptions())
	completionClient := completion.NewOpenAI(cfg.Completion.BaseURL, cfg.Completion.APIKey, cfg.Completion.Model)
	analyzer := intent.NewAnalyzer(completionClient, logger)

	var (
		direct   *pipeline.DirectProvider
		searcher pipeline.Searcher
		surface  *browser.Headless
	)
	if cfg.Search.DirectAPIKey != "" {
		direct = pipeline.NewDirectProvider(
			client.Resty(), cfg.Search.DirectEndpoint, cfg.Search.DirectAPIKey, cfg.Fetch.MaxCharsPerResult,
		)
		logger.Info("direct content API enabled", zap.String("endpoint", cfg.Search.DirectEndpoint))
	} else {
		var err error
		surface, err = browser.NewHeadless(client)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser surface: %w", err)
		}
		executor := browser.NewExecutor(surface, browser.Options{
			SessionTimeout: cfg.Search.SessionTimeout,
			SettleDelay:    cfg.Search.SettleDelay,
		}, logger)
		executor.OnEvent = metrics.RecordBrowserEvent
		searcher = pipeline.NewBrowserSearcher(executor)
	}

	fetcher := fetch.NewEngine(client, fetch.Options{
		PerURLTimeout:     cfg.Fetch.PerURLTimeout,
		MaxCharsPerResult: cfg.Fetch.MaxCharsPerResult,
		MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
		MaxCandidates:     cfg.Fetch.MaxCandidates,
	}, logger, metrics)

	service := pipeline.New(pipeline.Params{
		Analyzer:      analyzer,
		Searcher:      searcher,
		Direct:        direct,
		Fetcher:       fetcher,
		Logger:        logger,
		Metrics:       metrics,
		DefaultEngine: cfg.Search.Engine,
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(cors.Default())

	h := newHandlers(service, logger)
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/v1/augment", h.Augment)
	router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
	))

	logger.Info("server initialized")

	return &Server{
		router:  router,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		surface: surface,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))

	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases pipeline resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}
	if s.surface != nil {
		if err := s.surface.Close(); err != nil {
			s.logger.Warn("failed to close browser surface", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
	return nil
}
