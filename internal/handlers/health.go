package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/logger"
)

// Pinger checks that a backing service answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler reports whether the database is reachable.
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} handlers.Response
// @Failure 503 {object} apperror.Response
// @Router /healthz [get]
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Log.Errorw("health check failed", "error", err)
			apperror.Write(w, apperror.Wrap(err, http.StatusServiceUnavailable, "Database is unavailable"))
			return
		}
		writeJSON(w, http.StatusOK, Response{Status: StatusSuccess})
	}
}
