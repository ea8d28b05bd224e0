package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/base-backend/internal/logging"
	"github.com/sakif/base-backend/internal/repository"
)

// ReadinessTimeout bounds the datastore ping behind /readiness/.
const ReadinessTimeout = 3 * time.Second

// HealthHandler serves the orchestrator probes.
//
// LIVENESS VS READINESS:
//   - /health/ answers "is the process up?" and touches nothing. A failing
//     liveness probe gets the container restarted, so it must not depend on
//     the database: a database outage would otherwise restart every replica.
//   - /readiness/ answers "can this replica serve traffic?" and pings the
//     store. A failing readiness probe only takes the replica out of the
//     load balancer until the store is back.
//
// Both are stateless and safe to call at any rate.
type HealthHandler struct {
	db      repository.Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler that pings db on readiness checks.
func NewHealthHandler(db repository.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		timeout: ReadinessTimeout,
		logger:  logging.Named(logger, "apps.core.health"),
	}
}

// statusResponse is the body of both probes.
type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HandleLiveness reports that the process is running.
//
// HTTP: GET /health/ → 200 {"status":"ok"}
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	neverCache(w)
	WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleReadiness pings the datastore.
//
// HTTP: GET /readiness/
//
//	200 {"status":"ready"}
//	503 {"status":"not ready","error":"<reason>"}
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	neverCache(w)

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", slog.String("error", err.Error()))
		WriteJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready", Error: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

// neverCache marks a response as uncacheable by browsers and proxies.
// A cached "ready" could keep routing traffic to a replica whose database is gone.
func neverCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "max-age=0, no-cache, no-store, must-revalidate, private")
	h.Set("Expires", time.Now().UTC().Format(http.TimeFormat))
}
