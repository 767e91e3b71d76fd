package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "스크리닝 1회 실행",
	Long: `Runs the three-stage screening once and prints the funnel to the console.

Example:
  go run ./cmd/screener run
  go run ./cmd/screener run --date 2026-08-21 --strategy volume_breakout`,
	RunE: runScreening,
}

var (
	runDate     string
	runStrategy string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "run date YYYY-MM-DD (default today)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "default", "strategy name")
}

func runScreening(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := time.Now()
	if runDate != "" {
		if date, err = time.Parse("2006-01-02", runDate); err != nil {
			return fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
		}
	} else {
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	}

	cfg, err := a.registry.Get(runStrategy)
	if err != nil {
		return err
	}

	scr := a.screener(a.notifier(true))
	summary, _, err := scr.Run(context.Background(), date, cfg)
	if err != nil {
		return fmt.Errorf("screening run: %w", err)
	}

	fmt.Printf("\n✅ run %s finished: %d passed out of %d\n",
		summary.RunID, summary.FinalPassed, summary.UniverseTotal)
	return nil
}
