package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danafeld/bookshelf/internal/booklookup"
	"github.com/danafeld/bookshelf/internal/config"
	"github.com/danafeld/bookshelf/internal/metrics"
	"github.com/danafeld/bookshelf/internal/ratings"
	"github.com/danafeld/bookshelf/internal/repository"
	"github.com/danafeld/bookshelf/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg     config.Config
	store   *store.Store
	repo    *repository.Repository
	ratings *ratings.Service
	lookup  booklookup.Client
	logger  *log.Logger
	router  chi.Router
	httpSrv *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, ratingsSvc *ratings.Service, lookup booklookup.Client, logger *log.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(observeRequests)

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:     cfg,
		store:   st,
		repo:    repo,
		ratings: ratingsSvc,
		lookup:  lookup,
		logger:  logger,
		router:  r,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Route("/books", func(r chi.Router) {
		r.Get("/", s.handleListBooks)
		r.Post("/", s.handleCreateBook)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Put("/", s.handleUpdateBook)
			r.Delete("/", s.handleDeleteBook)
		})
	})

	s.router.Route("/ratings", func(r chi.Router) {
		r.Get("/", s.handleListRatings)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRating)
			r.Post("/values", s.handleSubmitValue)
		})
	})

	s.router.Get("/top", s.handleTop)
}

// observeRequests records per-route request durations. The chi route pattern
// is used instead of the raw path to keep the label cardinality bounded.
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.WithLabelValues(
			route,
			r.Method,
			strconv.Itoa(ww.Status()),
		).Observe(time.Since(start).Seconds())
	})
}

// Start boots the HTTP server asynchronously.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.HealthCheck(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
