package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/screener/backend/internal/api/handlers"
	"github.com/wonny/screener/backend/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
// schedHandler is optional: nil when the process runs without the scheduler.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(screening *handlers.ScreeningHandler, health *handlers.HealthHandler, schedHandler *handlers.SchedulerHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", health.Health).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Screening endpoints
	api.HandleFunc("/screening/results", screening.GetResults).Methods("GET")
	api.HandleFunc("/screening/summary", screening.GetSummary).Methods("GET")
	api.HandleFunc("/screening/run", screening.TriggerRun).Methods("POST")
	api.HandleFunc("/strategies", screening.ListStrategies).Methods("GET")

	// Scheduler endpoints
	if schedHandler != nil {
		api.HandleFunc("/scheduler/stats", schedHandler.Stats).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
