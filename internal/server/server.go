// Package server exposes the transcription pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/vscribe/internal/core/config"
	"github.com/guiyumin/vscribe/internal/core/logging"
	"github.com/guiyumin/vscribe/internal/core/pipeline"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Pipeline is what the server needs from the transcription pipeline.
type Pipeline interface {
	Handle(ctx context.Context, videoID string) (*transcriber.Result, error)
	Jobs() []pipeline.Job
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TranscribeRequest is bound from the URI of POST /transcribe/:video_id.
type TranscribeRequest struct {
	VideoID string `uri:"video_id" binding:"required,videoid"`
}

// Server is the HTTP server for vscribe.
type Server struct {
	cfg      config.ServerConfig
	pipeline Pipeline
	log      zerolog.Logger
	engine   *gin.Engine
	server   *http.Server
}

// NewServer creates a server and registers its routes.
func NewServer(cfg config.ServerConfig, p Pipeline, log zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		log:      logging.Component(log, "server"),
	}

	registerValidators()

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()

	s.engine.Use(s.requestIDMiddleware())
	s.engine.Use(s.loggingMiddleware())
	s.engine.Use(gin.CustomRecovery(s.recover))

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/transcribe/:video_id", s.handleTranscribe)
	s.engine.GET("/jobs", s.handleJobs)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // transcriptions can take minutes
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info().
		Str("addr", s.server.Addr).
		Int("workers", s.cfg.MaxConcurrent).
		Int("queue", s.cfg.QueueSize).
		Msg("starting vscribe server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Middleware

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set(logging.FieldRequestID, id)

		l := s.log.With().Str(logging.FieldRequestID, id).Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := zerolog.Ctx(c.Request.Context()).Info()
		if status >= http.StatusInternalServerError {
			event = zerolog.Ctx(c.Request.Context()).Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) recover(c *gin.Context, rec any) {
	zerolog.Ctx(c.Request.Context()).Error().Interface("panic", rec).Msg("handler panic")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleTranscribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: describeBindError(err)})
		return
	}

	res, err := s.pipeline.Handle(c.Request.Context(), req.VideoID)
	if err != nil {
		c.JSON(pipeline.KindOf(err).HTTPStatus(), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.pipeline.Jobs()})
}
