package handlers

import (
	"net/http"

	"github.com/wonny/screener/backend/internal/scheduler"
)

// SchedulerHandler exposes job statistics for the cron scheduler
type SchedulerHandler struct {
	sched *scheduler.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(sched *scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{sched: sched}
}

// Stats handles GET /api/scheduler/stats
func (h *SchedulerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  h.sched.GetAllJobs(),
		"stats": h.sched.GetJobStats(),
	})
}
