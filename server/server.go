// Package server exposes the print-preparation pipeline over HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/BuragaIonut/daisler/analyze"
	"github.com/BuragaIonut/daisler/extend"
	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/pipeline"
	"github.com/BuragaIonut/daisler/ratio"
)

// DefaultMaxUploadBytes caps request bodies at 32 MiB.
const DefaultMaxUploadBytes int64 = 32 << 20

// Config carries the tunables of the HTTP layer.
type Config struct {
	// MaxUploadBytes limits the request body size; zero selects
	// DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Server wires the analyzers and the pipeline into a gin router.
type Server struct {
	cfg      Config
	analyzer *analyze.Analyzer
	pipe     *pipeline.Pipeline
	log      observability.Logger
}

// New builds a Server. analyzer may be nil when no vision model is
// configured; the analysis endpoints then answer 503.
func New(cfg Config, analyzer *analyze.Analyzer, pipe *pipeline.Pipeline, log observability.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Server{cfg: cfg, analyzer: analyzer, pipe: pipe, log: log}
}

// Router assembles the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(s.limitBody)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "daisler", "status": "ok"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	r.POST("/analyze", s.handleAnalyze)
	r.POST("/analyze_pdf", s.handleAnalyzePDF)
	r.POST("/process", s.handleProcess)
	r.POST("/prepare", s.handlePrepare)
	r.POST("/variants", s.handleVariants)
	return r
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	c.Next()
}

// abortError maps pipeline failures onto HTTP status codes. Caller
// mistakes answer 4xx, upstream trouble answers 502, the rest 500.
func (s *Server) abortError(c *gin.Context, err error) {
	var (
		inputErr *pipeline.InputValidationError
		rangeErr *ratio.OutOfRangeError
		ratioErr *ratio.UnsatisfiableRatioError
		svcErr   *extend.ExternalServiceError
	)
	switch {
	case errors.As(err, &inputErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &rangeErr), errors.As(err, &ratioErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &svcErr):
		s.log.Error("upstream failure", observability.Error("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", observability.Error("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
