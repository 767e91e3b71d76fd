package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/backend/internal/api"
	"github.com/wonny/screener/backend/internal/api/handlers"
	"github.com/wonny/screener/backend/internal/scheduler"
	"github.com/wonny/screener/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 시작 (장 마감 후 자동 스크리닝)",
	Long: `Starts the cron scheduler with the daily jobs, plus the API server so
job stats and results are observable while it runs.

Jobs:
  symbol_sync      - 종목 마스터 동기화 (평일 08:30)
  daily_screening  - 3단계 스크리닝 (평일 16:10)

Example:
  go run ./cmd/screener scheduler
  go run ./cmd/screener scheduler --strategy volume_breakout`,
	RunE: runScheduler,
}

var (
	schedStrategy  string
	schedCron      string
	schedRunOnBoot bool
)

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&schedStrategy, "strategy", "default", "strategy name for the daily run")
	schedulerCmd.Flags().StringVar(&schedCron, "cron", "", "override the screening cron expression (with seconds)")
	schedulerCmd.Flags().BoolVar(&schedRunOnBoot, "run-now", false, "trigger the screening job immediately on start")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.registry.Get(schedStrategy); err != nil {
		return err
	}

	scr := a.screener(a.notifier(false))

	sched := scheduler.New(a.log)
	if err := sched.AddJob(jobs.NewSymbolSyncJob(a.provider, a.symbols, "", a.log)); err != nil {
		return fmt.Errorf("add symbol sync job: %w", err)
	}
	screeningJob := jobs.NewScreeningJob(scr, a.registry, schedStrategy, schedCron, a.log)
	if err := sched.AddJob(screeningJob); err != nil {
		return fmt.Errorf("add screening job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	if schedRunOnBoot {
		if err := sched.RunJob(screeningJob.Name()); err != nil {
			a.log.WithError(err).Warn("Immediate screening trigger failed")
		}
	}

	// API alongside the scheduler so /api/scheduler/stats is reachable
	screeningHandler := handlers.NewScreeningHandler(a.results, a.registry, scr, a.log)
	healthHandler := handlers.NewHealthHandler(a.db, a.log)
	router := api.NewRouter(screeningHandler, healthHandler, handlers.NewSchedulerHandler(sched), a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("✅ Scheduler running, API on http://localhost:%s\n", a.cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
