// Package server exposes configuration, roster import, previews and
// background exports over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	diploma "github.com/porticus-lab/go-diploma"
	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/templates"
)

// Options configure a Server. Store, Renderer and Exporter are required.
type Options struct {
	Store    config.Store
	Renderer templates.Renderer
	Exporter *diploma.Exporter

	// JobTTL is how long finished exports stay downloadable. Zero keeps
	// them until the server stops.
	JobTTL time.Duration

	// Registry receives the metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry

	Logger *zap.Logger
	Debug  bool
}

// Server is the HTTP API.
type Server struct {
	store    config.Store
	renderer templates.Renderer
	exporter *diploma.Exporter
	jobs     *jobRegistry
	metrics  *Metrics
	logger   *zap.Logger

	// cfgMu serializes read-modify-write cycles on the stored configuration.
	cfgMu sync.Mutex

	engine *gin.Engine
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:    opts.Store,
		renderer: opts.Renderer,
		exporter: opts.Exporter,
		jobs:     newJobRegistry(opts.JobTTL),
		metrics:  NewMetrics(opts.Registry),
		logger:   opts.Logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), s.metrics.middleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/ping", pingHandler)

		api.GET("/config", s.getConfig)
		api.PUT("/config", s.putConfig)
		api.DELETE("/config", s.resetConfig)
		api.POST("/config/signers", s.addSigner)
		api.PATCH("/config/signers/:id", s.updateSigner)
		api.DELETE("/config/signers/:id", s.removeSigner)

		api.GET("/designs", s.listDesigns)
		api.GET("/roster/template", s.rosterTemplate)
		api.POST("/roster/import", s.importRoster)
		api.POST("/preview", s.preview)

		api.POST("/exports", s.startExport)
		api.GET("/exports/:id", s.exportStatus)
		api.GET("/exports/:id/file", s.exportFile)
		api.DELETE("/exports/:id", s.cancelExport)
	}
	s.engine = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then cancels running exports
// and shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.jobs.cancelAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request.
func requestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			l.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			l.Warn("request", fields...)
		default:
			l.Debug("request", fields...)
		}
	}
}
