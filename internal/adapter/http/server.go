package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-alerts/internal/domain"
	"github.com/couchcryptid/hazard-alerts/internal/observability"
	"github.com/couchcryptid/hazard-alerts/internal/reports"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assessor evaluates the hazards of a coordinate.
type Assessor interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (domain.AlertReport, error)
	Conditions(ctx context.Context, geo domain.Geo) (domain.ConditionsReport, error)
}

// ReportStore keeps incident reports.
type ReportStore interface {
	Add(in reports.NewReport) (reports.Report, error)
	Recent(limit int) []reports.Report
}

// Publisher forwards a serialized event downstream.
type Publisher interface {
	Publish(ctx context.Context, event domain.OutputEvent) error
}

// Dependencies are the collaborators behind the /v1 routes.
type Dependencies struct {
	Ready      sharedobs.ReadinessChecker
	Assessor   Assessor
	Reports    ReportStore
	Publisher  Publisher // optional; nil disables report fan-out
	DefaultGeo domain.Geo
	Metrics    *observability.Metrics
}

// Server exposes health, readiness, metrics and the hazard API.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /v1 routes.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:     deps,
		validate: newValidator(),
		logger:   logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.logRequests)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/conditions", s.handleConditions)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Post("/", s.handleCreateReport)
			r.Get("/types", s.handleReportTypes)
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

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
