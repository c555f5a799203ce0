package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
	"github.com/couchcryptid/odor-dispersion-service/internal/session"
	"github.com/couchcryptid/odor-dispersion-service/internal/weather"
)

// Options wires the server to the rest of the service.
type Options struct {
	Ready            sharedobs.ReadinessChecker
	Sessions         *session.Manager
	Board            *weather.Board
	MaxCountMode     domain.MaxCountMode
	ClusterThreshold float64
	Metrics          *observability.Metrics
	Logger           *slog.Logger
}

// Server exposes health, readiness, metrics and the odor map API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	sessions         *session.Manager
	board            *weather.Board
	maxCountMode     domain.MaxCountMode
	clusterThreshold float64
	metrics          *observability.Metrics
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /v1 routes.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxCountMode == "" {
		opts.MaxCountMode = domain.MaxCountGlobal
	}
	if opts.ClusterThreshold == 0 {
		opts.ClusterThreshold = domain.DefaultClusterThresholdMeters
	}
	if opts.Ready == nil {
		opts.Ready = alwaysReady{}
	}

	r := chi.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:           opts.Logger,
		sessions:         opts.Sessions,
		board:            opts.Board,
		maxCountMode:     opts.MaxCountMode,
		clusterThreshold: opts.ClusterThreshold,
		metrics:          opts.Metrics,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(opts.Ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/plumes", s.handleComputePlumes)
		r.Post("/clusters", s.handleClusters)
		r.Post("/complaints/stats", s.handleComplaintStats)
		r.Get("/weather", s.handleWeather)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.handleUpdateSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/plumes", s.handleSessionPlumes)
				r.Get("/clusters", s.handleSessionClusters)
			})
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
