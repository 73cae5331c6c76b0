package commands

import (
	"fmt"
	"strings"

	"europarl-collector/lib/serviceutil"
	"europarl-collector/services/runner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Works with the collector configuration.",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validates config.json5 and prints the resolved pipeline.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if err := cfg.Pipeline.Validate(); err != nil {
			serviceutil.Fatal("invalid pipeline config", err)
		}

		schedule := cfg.Pipeline.Schedule
		if schedule == "" {
			schedule = fmt.Sprintf("%s (default)", runner.DefaultSchedule)
		}

		t := newTable()
		t.AppendHeader(table.Row{"setting", "value"})
		t.AppendRow(table.Row{"schedule", schedule})
		t.AppendRow(table.Row{"workspace root", cfg.Pipeline.WorkspaceRoot})
		t.AppendRow(table.Row{"keep workspace", cfg.Pipeline.KeepWorkspace})
		t.AppendRow(table.Row{"setup manifest", cfg.Pipeline.Setup.Manifest})
		t.AppendRow(table.Row{"setup command", strings.Join(cfg.Pipeline.Setup.Command, " ")})
		t.AppendRow(table.Row{"scrape command", strings.Join(cfg.Pipeline.Scrape.Command, " ")})
		// secret values never appear anywhere, names are enough to check
		// the wiring
		t.AppendRow(table.Row{"scrape secrets", strings.Join(cfg.Pipeline.Scrape.Secrets, ", ")})
		t.AppendRow(table.Row{"scrape timeout", fmt.Sprintf("%dm", cfg.Pipeline.Scrape.TimeoutMinutes)})
		t.AppendRow(table.Row{"artifacts root", cfg.Artifacts.Root})
		for _, artifact := range cfg.Pipeline.Artifacts {
			retention := "default"
			if artifact.RetentionDays > 0 {
				retention = fmt.Sprintf("%dd", artifact.RetentionDays)
			}
			t.AppendRow(table.Row{
				"artifact " + artifact.Name,
				fmt.Sprintf("%s (retention %s)", artifact.File, retention),
			})
		}
		t.Render()

		fmt.Println("config is valid")
	},
}
