package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"ihp-inventory/internal/utils"
)

// GET /
func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Server is running...")
}

// Healthz reports 503 while the database is unreachable.
func Healthz(ping func(context.Context) error, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := dbContext(r, defaultTimeout)
		defer cancel()

		if err := ping(ctx); err != nil {
			utils.LoggerFrom(r.Context(), log).Warn("health check failed", "error", err)
			utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
