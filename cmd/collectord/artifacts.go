package main

import (
	"context"
	"log/slog"

	"europarl-collector/lib/chrono"
	configsqldb "europarl-collector/lib/configutil/sqldb"
	"europarl-collector/services/artifacts"
	"europarl-collector/services/artifacts/db"
)

type ArtifactsConfig struct {
	// directory artifact content is stored under
	Root string `json:"root"`
	// when expired artifacts are swept, defaults to daily at 04:00 utc
	CleanupSchedule string `json:"cleanup_schedule"`
}

func InitArtifacts(cronner chrono.CronAPI, clock chrono.API, cfg ArtifactsConfig, dbcfg configsqldb.Struct) (artifacts.Service, error) {
	database, err := dbcfg.OpenDB(db.Schema)
	if err != nil {
		return artifacts.Service{}, err
	}
	store := artifacts.NewService(database, cfg.Root, clock)

	schedule := cfg.CleanupSchedule
	if schedule == "" {
		schedule = "0 4 * * *"
	}
	err = cronner.Cron(schedule, func() {
		_, err := store.Prune(context.Background())
		if err != nil {
			slog.Error("prune artifacts", "err", err)
		}
	})
	if err != nil {
		return artifacts.Service{}, err
	}

	return store, nil
}
