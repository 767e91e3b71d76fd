package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wonny/screener/backend/internal/contracts"
	"github.com/wonny/screener/backend/internal/strategy"
	"github.com/wonny/screener/backend/pkg/logger"
)

// ScreeningRunner is the slice of the screener the API needs
type ScreeningRunner interface {
	Run(ctx context.Context, date time.Time, cfg *strategy.Config) (*contracts.ScreeningSummary, []contracts.ScreeningResult, error)
}

// ScreeningHandler serves screening results and the manual run trigger
// ⭐ SSOT: 스크리닝 API 핸들러는 여기서만
type ScreeningHandler struct {
	results  contracts.ResultStore
	registry *strategy.Registry
	runner   ScreeningRunner
	logger   *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(results contracts.ResultStore, registry *strategy.Registry, runner ScreeningRunner, log *logger.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		results:  results,
		registry: registry,
		runner:   runner,
		logger:   log,
	}
}

// GetResults handles GET /api/screening/results?date=YYYY-MM-DD
func (h *ScreeningHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	results, err := h.results.ResultsByDate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load screening results")
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	if results == nil {
		results = []contracts.ScreeningResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"count":   len(results),
		"results": results,
	})
}

// GetSummary handles GET /api/screening/summary?date=YYYY-MM-DD
func (h *ScreeningHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	summary, err := h.results.SummaryByDate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load screening summary")
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no screening run for "+date.Format("2006-01-02"))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type runRequest struct {
	Date     string `json:"date,omitempty"`     // YYYY-MM-DD, default today
	Strategy string `json:"strategy,omitempty"` // default "default"
}

// TriggerRun handles POST /api/screening/run.
// The run executes in the background; poll the summary endpoint for the
// outcome. 202 means accepted, not succeeded.
func (h *ScreeningHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil {
		// Empty body is a valid request (today, default strategy).
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	date := time.Now().UTC()
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	name := req.Strategy
	if name == "" {
		name = "default"
	}
	cfg, err := h.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown strategy: "+name)
		return
	}

	// Detached from the request context: the run outlives the HTTP call.
	go func() {
		if _, _, err := h.runner.Run(context.Background(), date, cfg); err != nil {
			h.logger.WithError(err).Error("Triggered screening run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"date":     date.Format("2006-01-02"),
		"strategy": name,
	})
}

// ListStrategies handles GET /api/strategies
func (h *ScreeningHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": h.registry.Names(),
	})
}
