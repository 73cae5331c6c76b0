package main

import (
	"flag"
	"log/slog"

	"europarl-collector/lib/chrono"
	"europarl-collector/lib/configutil"
	configsqldb "europarl-collector/lib/configutil/sqldb"
	"europarl-collector/lib/serviceutil"
	"europarl-collector/services/runner"
)

type Config struct {
	Pipeline    runner.PipelineConfig `json:"pipeline"`
	Artifacts   ArtifactsConfig       `json:"artifacts"`
	RunnerDb    configsqldb.Struct    `json:"runner_db"`
	ArtifactsDb configsqldb.Struct    `json:"artifacts_db"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Pipeline.Schedule == "" {
		cfg.Pipeline.Schedule = runner.DefaultSchedule
	}
	err = cfg.Pipeline.Validate()
	if err != nil {
		serviceutil.Fatal("validate pipeline config", err)
	}

	clock := chrono.NewStandardImpl()
	cronner := chrono.NewStandardCron()

	store, err := InitArtifacts(cronner, clock, cfg.Artifacts, cfg.ArtifactsDb)
	if err != nil {
		serviceutil.Fatal("init artifacts", err)
	}
	err = InitRunner(cronner, clock, cfg.Pipeline, cfg.RunnerDb, store)
	if err != nil {
		serviceutil.Fatal("init runner", err)
	}

	slog.Info("collectord is up", "schedule", cfg.Pipeline.Schedule)
	<-ctx.Done()
	<-cronner.Stop().Done()
}
