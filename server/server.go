// Package server exposes the triage workflow over HTTP.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mwhite-dev/threadflow/graph"
	"github.com/mwhite-dev/threadflow/triage"
)

// Server handles the triage HTTP API:
//
//	POST /chat                   start a turn or resume a paused one
//	GET  /threads/{threadID}/history  checkpoint history of a thread
//	GET  /healthz                liveness probe
//	GET  /metrics                Prometheus metrics
type Server struct {
	engine   *graph.Engine[triage.State]
	logger   *zap.Logger
	gatherer prometheus.Gatherer
}

// New creates a Server. logger and gatherer may be nil; a no-op logger and
// the default Prometheus gatherer are used.
func New(engine *graph.Engine[triage.State], logger *zap.Logger, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{engine: engine, logger: logger, gatherer: gatherer}
}

// Router builds the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/chat", s.handleChat)
	r.Get("/threads/{threadID}/history", s.handleHistory)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	return r
}
