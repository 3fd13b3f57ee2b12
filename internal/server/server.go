package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/Kar2410/FLOW-FIX/internal/adapter/utils"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/handlers"
	"github.com/Kar2410/FLOW-FIX/internal/middleware"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

// Stopper is anything that drains on shutdown, like the worker pool.
type Stopper interface {
	Stop(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *logger_i.Logger
}

// NewRouter mounts the API behind the middleware chain. mcpHandler may be nil.
func NewRouter(h *handlers.Handler, mw *middleware.Middleware, mcpHandler http.Handler) *chi.Mux {
	r := utils.NewRouter()

	r.Get("/", h.Health)
	r.Post("/analyze", mw.Wrap(h.Analyze))
	r.Get("/status/{id}", mw.Wrap(h.GetStatus))
	r.Post("/ingest", mw.Wrap(h.Ingest))
	r.Post("/search", mw.Wrap(h.Search))
	r.Get("/documents", mw.Wrap(h.ListDocuments))
	r.Delete("/documents/{id}", mw.Wrap(h.DeleteDocument))
	if mcpHandler != nil {
		r.Handle("/mcp", mw.WrapHandler(mcpHandler))
	}
	return r
}

func New(listenAddr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         listenAddr,
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		logger: logger_i.NewLogger("server"),
	}
}

// ListenAndServe blocks until the server fails or is shut down. A shutdown is
// not reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Server is listening", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Server crashed", "error", err, "addr", s.httpServer.Addr)
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains the workers and finally runs
// closeServices. Everything shares the ShutdownContextTimeout budget.
func (s *Server) Shutdown(workers Stopper, closeServices func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Could not shutdown gracefully", "error", err)
		errs = append(errs, err)
	}
	if workers != nil {
		if err := workers.Stop(ctx); err != nil {
			s.logger.Error("Workers did not stop in time", "error", err)
			errs = append(errs, err)
		}
	}
	if closeServices != nil {
		closeServices()
	}
	if len(errs) == 0 {
		s.logger.Info("Gracefully shut down")
	}
	return errors.Join(errs...)
}
