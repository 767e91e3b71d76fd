package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/screener/backend/internal/contracts"
)

// Console prints the run outcome to a writer: the funnel counts followed by
// a survivor table. Used by the CLI run command.
type Console struct {
	out io.Writer
}

// NewConsole creates a console notifier writing to stdout
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console notifier for tests
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Send prints the funnel summary and survivor table
func (c *Console) Send(ctx context.Context, summary *contracts.ScreeningSummary, results []contracts.ScreeningResult) error {
	fmt.Fprintf(c.out, "\n%s screening (%s), universe %d, elapsed %s\n",
		summary.RunDate.Format("2006-01-02"), summary.Strategy,
		summary.UniverseTotal, summary.Elapsed.Round(time.Millisecond))

	funnel := tablewriter.NewWriter(c.out)
	funnel.Header("Stage", "Input", "Passed", "Failed", "Skipped")
	for _, row := range []struct {
		name   string
		counts contracts.StageCounts
	}{
		{"1 bulk", summary.Stage1},
		{"2 technical", summary.Stage2},
		{"3 supply/demand", summary.Stage3},
	} {
		funnel.Append(row.name,
			fmt.Sprintf("%d", row.counts.Input),
			fmt.Sprintf("%d", row.counts.Passed),
			fmt.Sprintf("%d", row.counts.Failed),
			fmt.Sprintf("%d", row.counts.Skipped))
	}
	funnel.Render()

	if len(results) == 0 {
		fmt.Fprintln(c.out, "no survivors")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Code", "Name", "Market", "Conditions")
	for i, r := range results {
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.Code,
			r.Name,
			r.Market,
			strings.Join(r.PassedTags, " "))
	}
	table.Render()
	return nil
}

var _ contracts.Notifier = (*Console)(nil)
