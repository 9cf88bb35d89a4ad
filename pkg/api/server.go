// Package api exposes matching and single-tooltip extraction over HTTP.
package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/BlakeDonn/inven/pkg/pipeline"
)

type Config struct {
	// JWTSecret enables bearer auth on every route except /health when set.
	JWTSecret string
	// RateLimit is extractions per second; <= 0 disables limiting.
	RateLimit float64
	RateBurst int
	// MaxUploadBytes caps each multipart image. Zero means 8 MiB.
	MaxUploadBytes int64
}

type Server struct {
	pipe    *pipeline.Pipeline
	db      *gorm.DB
	cfg     Config
	limiter *rate.Limiter
	logger  *log.Logger
}

// New wires the server. db may be nil; record lookups then answer 503.
func New(pipe *pipeline.Pipeline, db *gorm.DB, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 8 << 20
	}
	s := &Server{pipe: pipe, db: db, cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(s.logger.Writer()))
	r.MaxMultipartMemory = 2 * s.cfg.MaxUploadBytes

	r.GET("/health", s.health)

	g := r.Group("/")
	if s.cfg.JWTSecret != "" {
		g.Use(jwtAuthMiddleware([]byte(s.cfg.JWTSecret)))
	}
	g.POST("/match/item", s.matchItem)
	g.POST("/match/trait", s.matchTrait)
	g.POST("/extract", rateLimitMiddleware(s.limiter), s.extract)
	g.GET("/runs/:id/records", s.runRecords)
	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Printf("api listening addr=%s auth=%t", addr, s.cfg.JWTSecret != "")
	return s.Router().Run(addr)
}
