package handlers

import (
	"net/http"

	"github.com/wonny/screener/backend/pkg/database"
	"github.com/wonny/screener/backend/pkg/logger"
)

// HealthHandler reports service and database health
type HealthHandler struct {
	db     *database.DB // nil when running without a database
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: log}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": "screener-api",
	}

	if h.db != nil {
		status, err := h.db.HealthCheck(r.Context())
		body["database"] = status
		if err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			body["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}

	writeJSON(w, http.StatusOK, body)
}
