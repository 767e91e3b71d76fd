package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "국내 주식 3단계 스크리닝 엔진",
	Long: `Daily screening engine for the Korean equity market.

3단계 퍼널로 전 종목에서 후보를 걸러냅니다:
  1차 가격/거래량 벌크 필터 → 2차 기술적 필터 → 3차 수급 필터

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener run
  go run ./cmd/screener run --date 2026-08-21 --strategy volume_breakout
  go run ./cmd/screener api
  go run ./cmd/screener scheduler
  go run ./cmd/screener sync`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
