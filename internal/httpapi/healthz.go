package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/leadwatch/leadwatch/internal/store"
)

// HealthHandler serves GET /internal/healthz (SPEC_FULL.md §4.8): DB
// reachability plus the finish time of the most recently recorded tick
// (whether or not that tick recorded an error), the two facts an operator
// needs to know the worker is alive and making progress.
type HealthHandler struct {
	store *store.Store
}

func NewHealthHandler(st *store.Store) *HealthHandler {
	return &HealthHandler{store: st}
}

func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /internal/healthz", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbOK := true
	if err := h.store.DB.PingContext(ctx); err != nil {
		dbOK = false
	}

	var lastTick *time.Time
	ticks, err := h.store.TickHistory.ListRecentTicks(ctx, 1)
	if err == nil && len(ticks) > 0 {
		t := ticks[0].FinishedAt
		lastTick = &t
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"status":        statusString(dbOK),
		"db_ok":         dbOK,
		"last_tick_at":  lastTick,
	})
}

func statusString(ok bool) string {
	if ok {
		return "ok"
	}
	return "degraded"
}
