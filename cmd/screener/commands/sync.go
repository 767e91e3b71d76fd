package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "종목 마스터 동기화",
	Long: `Refreshes the symbol master from the given session's quote table.

Example:
  go run ./cmd/screener sync
  go run ./cmd/screener sync --date 2026-08-21`,
	RunE: runSync,
}

var syncDate string

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncDate, "date", "", "session date YYYY-MM-DD (default today)")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	date := time.Now()
	if syncDate != "" {
		if date, err = time.Parse("2006-01-02", syncDate); err != nil {
			return fmt.Errorf("invalid --date, expected YYYY-MM-DD: %w", err)
		}
	}

	count, err := a.provider.SyncSymbols(context.Background(), date, a.symbols)
	if err != nil {
		return fmt.Errorf("symbol sync: %w", err)
	}

	fmt.Printf("✅ %d symbols synced for %s\n", count, date.Format("2006-01-02"))
	return nil
}
