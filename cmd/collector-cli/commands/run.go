package commands

import (
	"log/slog"
	"os"
	"time"

	"europarl-collector/lib/serviceutil"
	"europarl-collector/services/runner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Triggers one pipeline run right now and waits for it to finish.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store := openArtifacts(cfg)
		service := openRunner(cfg, store)

		t1 := time.Now()
		runId, runErr := service.Execute(cmd.Context(), runner.TriggerManual)
		slog.Info("run finished", "seconds", time.Since(t1).Seconds())

		if runId == "" {
			serviceutil.Fatal("trigger run", runErr)
		}

		run, err := service.GetRun(cmd.Context(), runId)
		if err != nil {
			serviceutil.Fatal("read run record", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"run", "trigger", "status", "stage", "exit", "error"})
		t.AppendRow(table.Row{
			run.ID, run.TriggerKind, run.Status, run.Stage,
			formatExitCode(run.ScrapeExitCode), run.Error,
		})
		t.Render()

		stored, err := store.ForRun(cmd.Context(), runId)
		if err != nil {
			serviceutil.Fatal("list run artifacts", err)
		}
		renderArtifacts(stored)

		if runErr != nil {
			os.Exit(1)
		}
	},
}
