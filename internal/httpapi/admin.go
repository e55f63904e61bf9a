package httpapi

import (
	"context"
	"net/http"

	"github.com/leadwatch/leadwatch/internal/store"
)

// ticker is the subset of *scheduler.Scheduler this handler depends on —
// kept as an interface so httpapi doesn't need to import scheduler just to
// call one method.
type ticker interface {
	RunOnce(ctx context.Context) store.TickRecord
}

// AdminHandler serves the operator trigger named in spec.md §6:
// POST /admin/collect-messages forces one scheduler tick and returns its
// aggregated result, bypassing the regular interval.
type AdminHandler struct {
	scheduler ticker
	token     string
}

func NewAdminHandler(sched ticker, token string) *AdminHandler {
	return &AdminHandler{scheduler: sched, token: token}
}

func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/collect-messages", h.authMiddleware(h.handleCollect))
}

func (h *AdminHandler) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.token != "" && extractBearerToken(r) != h.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) handleCollect(w http.ResponseWriter, r *http.Request) {
	record := h.scheduler.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, record)
}
