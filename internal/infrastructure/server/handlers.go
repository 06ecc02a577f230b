package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webaugment/internal/augment"
	"github.com/GriffinCanCode/webaugment/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webaugment/internal/pipeline"
)

// requestLogger logs each request with latency and status.
func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

type handlers struct {
	service *pipeline.Service
	logger  *logging.Logger
}

func newHandlers(service *pipeline.Service, logger *logging.Logger) *handlers {
	return &handlers{
		service: service,
		logger:  logger.Named("http"),
	}
}

type augmentRequest struct {
	Message string            `json:"message" binding:"required"`
	History []augment.Message `json:"history"`
	// Engine overrides the configured default for this request.
	Engine string `json:"engine"`
}

type augmentResponse struct {
	Augmented bool            `json:"augmented"`
	Result    *augment.Result `json:"result,omitempty"`
	Phases    []augment.Phase `json:"phases"`
}

// Root returns service identity.
func (h *handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "webaugment",
		"status":  "running",
	})
}

// Health is the liveness probe.
func (h *handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Augment runs the pipeline for one user turn. The response always
// carries status 200: a turn that could not be augmented is a valid
// outcome, not an API error.
func (h *handlers) Augment(c *gin.Context) {
	var req augmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var phases []augment.Phase
	result := h.service.Execute(c.Request.Context(), req.Message, req.History, pipeline.Options{
		Engine:  req.Engine,
		OnPhase: func(p augment.Phase) { phases = append(phases, p) },
	})

	h.logger.Debug("augment request served",
		zap.Bool("augmented", result != nil),
		zap.Int("phases", len(phases)),
	)
	c.JSON(http.StatusOK, augmentResponse{
		Augmented: result != nil,
		Result:    result,
		Phases:    phases,
	})
}
