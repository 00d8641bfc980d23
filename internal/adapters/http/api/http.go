// Package api declares HTTP contracts and route registration for the
// review surface.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Dependencies required by HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Ingest accepts a perceived event for analysis.
	Ingest(ctx context.Context, event model.PerceivedEvent) (string, bool, error)

	// Review surface operations, each a queue state machine transition.
	Approve(ctx context.Context, id, override string) error
	Reject(ctx context.Context, id, reason string) error
	Skip(ctx context.Context, id string) error
	Reanalyze(ctx context.Context, id string) error

	// Read operations.
	Item(ctx context.Context, id string) (model.QueueItem, error)
	Items(ctx context.Context, status model.Status) ([]model.QueueItem, error)

	// InvalidateContextCache is the index rebuild notifier hook.
	InvalidateContextCache(ctx context.Context)
}

// StatsProvider exposes service statistics for the stats endpoint.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the review API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	eventsHandler *EventsHandler
	queueHandler  *QueueHandler
	cacheHandler  *CacheHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(stats),
		eventsHandler: NewEventsHandler(deps),
		queueHandler:  NewQueueHandler(deps),
		cacheHandler:  NewCacheHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/queue", MetricsMiddleware(s.queueHandler.HandleList, "queue"))
	mux.HandleFunc("/queue/", MetricsMiddleware(s.queueHandler.HandleItem, "queue_item"))
	mux.HandleFunc("/cache/invalidate", MetricsMiddleware(s.cacheHandler.HandleInvalidate, "cache_invalidate"))
	mux.Handle("/metrics", metrics.Handler())
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
