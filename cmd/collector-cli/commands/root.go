package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"europarl-collector/lib/chrono"
	"europarl-collector/lib/configutil"
	configsqldb "europarl-collector/lib/configutil/sqldb"
	"europarl-collector/lib/serviceutil"
	"europarl-collector/services/artifacts"
	artifactsdb "europarl-collector/services/artifacts/db"
	"europarl-collector/services/runner"
	runnerdb "europarl-collector/services/runner/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "collector-cli",
	Short: "collector-cli drives and inspects the europarl collection pipeline.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type ArtifactsConfig struct {
	Root            string `json:"root"`
	CleanupSchedule string `json:"cleanup_schedule"`
}

// Config mirrors the collectord configuration file, so the cli can work
// against the same databases and artifact store the daemon uses.
type Config struct {
	Pipeline    runner.PipelineConfig `json:"pipeline"`
	Artifacts   ArtifactsConfig       `json:"artifacts"`
	RunnerDb    configsqldb.Struct    `json:"runner_db"`
	ArtifactsDb configsqldb.Struct    `json:"artifacts_db"`
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	return cfg
}

func openArtifacts(cfg Config) artifacts.Service {
	database, err := cfg.ArtifactsDb.OpenDB(artifactsdb.Schema)
	if err != nil {
		serviceutil.Fatal("open artifacts db", err)
	}
	return artifacts.NewService(database, cfg.Artifacts.Root, chrono.NewStandardImpl())
}

func openRunner(cfg Config, store artifacts.Service) runner.Service {
	database, err := cfg.RunnerDb.OpenDB(runnerdb.Schema)
	if err != nil {
		serviceutil.Fatal("open runner db", err)
	}
	return runner.NewService(database, store, cfg.Pipeline, chrono.NewStandardImpl())
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatUnix(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.DateTime)
}

func formatExitCode(code sql.NullInt64) string {
	if !code.Valid {
		return "-"
	}
	return fmt.Sprint(code.Int64)
}
