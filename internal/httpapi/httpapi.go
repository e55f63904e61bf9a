// Package httpapi implements the worker's internal HTTP server (Component
// C8, SPEC_FULL.md §4.8): a liveness probe and an operator trigger for a
// forced tick. The handler layout — one small struct per concern,
// registered onto a shared *http.ServeMux, an authMiddleware wrapping a
// bearer-token check, and a writeJSON helper — is grounded on
// _examples/pdtkts-goclaw/internal/http/traces.go.
//
// The bot-push receiver named in spec.md §6
// (POST /internal/telegram/send-notification) is served by a separate API
// process, not this worker — the worker only calls it (internal/notifier's
// BotPushSender). Nothing in this package implements that route.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// writeJSON writes data as a JSON response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// extractBearerToken pulls the token out of an "Authorization: Bearer <token>"
// header, returning "" if the header is absent or malformed.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimPrefix(auth, prefix)
}

// NewMux builds the internal HTTP server's mux from its constituent
// handlers (healthz, admin).
func NewMux(health *HealthHandler, admin *AdminHandler) *http.ServeMux {
	mux := http.NewServeMux()
	health.RegisterRoutes(mux)
	admin.RegisterRoutes(mux)
	return mux
}
