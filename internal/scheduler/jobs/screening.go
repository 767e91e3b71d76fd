package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/screener/backend/internal/screening"
	"github.com/wonny/screener/backend/internal/strategy"
	"github.com/wonny/screener/backend/pkg/logger"
)

// DefaultScreeningSchedule runs after the KOSPI/KOSDAQ close, weekdays only.
// 장 마감(15:30) 후 정규 데이터 집계가 끝나는 16:10에 실행.
const DefaultScreeningSchedule = "0 10 16 * * 1-5"

// ScreeningJob runs the daily three-stage screening for today's session
type ScreeningJob struct {
	screener     *screening.Screener
	registry     *strategy.Registry
	strategyName string
	schedule     string
	logger       *logger.Logger
}

// NewScreeningJob creates the daily screening job. An empty schedule falls
// back to DefaultScreeningSchedule.
func NewScreeningJob(scr *screening.Screener, reg *strategy.Registry, strategyName, schedule string, log *logger.Logger) *ScreeningJob {
	if schedule == "" {
		schedule = DefaultScreeningSchedule
	}
	return &ScreeningJob{
		screener:     scr,
		registry:     reg,
		strategyName: strategyName,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *ScreeningJob) Name() string {
	return "daily_screening"
}

// Schedule returns the cron schedule expression
func (j *ScreeningJob) Schedule() string {
	return j.schedule
}

// Run screens today's session. Weekends are skipped outright; a weekday
// holiday surfaces from the provider as an unavailable snapshot and the run
// aborts without partial output.
func (j *ScreeningJob) Run(ctx context.Context) error {
	now := time.Now()
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		j.logger.WithField("weekday", wd.String()).Info("Market closed, skipping screening")
		return nil
	}

	cfg, err := j.registry.Get(j.strategyName)
	if err != nil {
		return fmt.Errorf("resolve strategy %s: %w", j.strategyName, err)
	}

	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	summary, _, err := j.screener.Run(ctx, date, cfg)
	if err != nil {
		return fmt.Errorf("screening run for %s: %w", date.Format("2006-01-02"), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":       summary.RunID,
		"final_passed": summary.FinalPassed,
	}).Info("Scheduled screening completed")
	return nil
}
