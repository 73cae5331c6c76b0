package commands

import (
	"time"

	"europarl-collector/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var runsLimit *int64

func init() {
	runsLimit = runsListCmd.Flags().Int64P("limit", "n", 20, "The maximum number of runs to show.")
	runsCmd.AddCommand(runsListCmd)
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspects past pipeline runs.",
}

var runsListCmd = &cobra.Command{
	Use:   "list [--limit <n>]",
	Short: "Lists the most recent pipeline runs, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := openArtifacts(cfg)
		service := openRunner(cfg, store)

		runs, err := service.ListRuns(cmd.Context(), *runsLimit)
		if err != nil {
			serviceutil.Fatal("list runs", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"run", "trigger", "status", "stage", "exit", "started", "duration"})
		for _, run := range runs {
			duration := "-"
			if run.FinishedAt.Valid {
				duration = (time.Duration(run.FinishedAt.Int64-run.StartedAt) * time.Second).String()
			}
			t.AppendRow(table.Row{
				run.ID, run.TriggerKind, run.Status, run.Stage,
				formatExitCode(run.ScrapeExitCode),
				formatUnix(run.StartedAt), duration,
			})
		}
		t.Render()
	},
}
