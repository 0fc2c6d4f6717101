// Package httpapi exposes the engine over HTTP.
package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/cognify/internal/metrics"
	"github.com/abhisek/cognify/internal/tracing"
)

type RouterConfig struct {
	Handler *Handler
	Metrics *metrics.Metrics

	// Tracer, when set, starts a span per request.
	Tracer trace.TracerProvider
	Logger *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}
	if cfg.Tracer != nil {
		r.Use(tracing.Middleware(cfg.Tracer))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	h := cfg.Handler
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/attempts", h.SubmitAttempt)

		v1.GET("/learners/:id/skills", h.Skills)
		v1.GET("/learners/:id/dashboard", h.Dashboard)
		v1.POST("/learners/:id/session/end", h.EndSession)

		v1.GET("/concepts", h.Concepts)
		v1.PUT("/concepts", h.LoadConcepts)
		v1.GET("/concepts/:id/prerequisites", h.Prerequisites)
	}
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
