package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowcanvas/pkg/anchor"
	"github.com/matzehuels/flowcanvas/pkg/config"
	"github.com/matzehuels/flowcanvas/pkg/geometry"
	"github.com/matzehuels/flowcanvas/pkg/pipeline"
)

// Options configures a Server.
type Options struct {
	// Geometry is used for every layout; zero means geometry.Default().
	// Its AcceptanceRadius bounds drop resolution.
	Geometry geometry.Geometry

	// MaxBodyBytes caps request bodies; zero means 1 MiB.
	MaxBodyBytes int64

	Logger *log.Logger
}

// Server serves the layout API. It owns the anchor registry and the drag
// state; layouts go through the shared runner.
type Server struct {
	runner *pipeline.Runner

	// layoutMu orders publish + remount so the published tree and the
	// mounted anchors always come from the same layout.
	layoutMu sync.Mutex
	registry *anchor.Registry
	dragger  *anchor.Dragger
	opts     Options
	logger   *log.Logger
}

// New creates a server backed by runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.Geometry == (geometry.Geometry{}) {
		opts.Geometry = geometry.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	reg := anchor.NewRegistry()
	return &Server{
		runner:   runner,
		registry: reg,
		dragger:  anchor.NewDragger(anchor.NewResolver(reg, opts.Geometry.AcceptanceRadius)),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Registry returns the server's anchor registry.
func (s *Server) Registry() *anchor.Registry { return s.registry }

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)

		r.Post("/layout", s.handleLayout)
		r.Get("/layout", s.handleLatest)
		r.Get("/layout/stream", s.handleStream)
		r.Get("/layout/render", s.handleRender)
		r.Post("/depth", s.handleDepth)

		r.Get("/anchors", s.handleListAnchors)
		r.Put("/anchors", s.handlePutAnchor)
		r.Delete("/anchors/{step}/{kind}", s.handleDeleteAnchor)

		r.Post("/drag", s.handleDragStart)
		r.Delete("/drag", s.handleDragEnd)
		r.Post("/drop", s.handleDrop)
	})
	return r
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.Server) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
