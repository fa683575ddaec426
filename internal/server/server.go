// Package server exposes snippet runners over HTTP. Each widget is one
// server-held runner with editable source; POST /execute runs a snippet
// without keeping it.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/caffeineduck/coderunner/internal/metrics"
	"github.com/caffeineduck/coderunner/runner"
	"github.com/caffeineduck/coderunner/snippet"
)

// Deps are the backends and collaborators handlers run snippets with.
type Deps struct {
	Remote    runner.Remote
	Local     runner.Local
	Snippets  *snippet.File
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	WidgetTTL time.Duration
}

type Server struct {
	Engine *gin.Engine
	Addr   string

	deps    Deps
	logger  *slog.Logger
	widgets *widgetManager
}

func New(addr, mode string, deps Deps) *Server {
	switch mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Snippets == nil {
		deps.Snippets = &snippet.File{}
	}
	if deps.WidgetTTL <= 0 {
		deps.WidgetTTL = 30 * time.Minute
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))

	s := &Server{
		Engine:  r,
		Addr:    addr,
		deps:    deps,
		logger:  deps.Logger,
		widgets: newWidgetManager(deps.WidgetTTL),
	}
	if deps.Metrics != nil {
		s.widgets.onOpen = deps.Metrics.WidgetOpened
		s.widgets.onClose = deps.Metrics.WidgetClosed
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	s.RegisterRoutes(r)
	return s
}

// Run serves until ctx is done, then shuts down and drops all widgets.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	interval := time.Minute
	if s.deps.WidgetTTL < interval {
		interval = s.deps.WidgetTTL
	}
	go s.widgets.cleanup(interval)
	defer s.widgets.closeAll()

	s.logger.Info("starting http server", "address", s.Addr)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			return
		}
		s.logger.Info("stopping http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)))
	}
}
