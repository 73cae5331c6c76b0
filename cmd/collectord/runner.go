package main

import (
	"europarl-collector/lib/chrono"
	configsqldb "europarl-collector/lib/configutil/sqldb"
	"europarl-collector/services/artifacts"
	"europarl-collector/services/runner"
	"europarl-collector/services/runner/db"
)

func InitRunner(cronner chrono.CronAPI, clock chrono.API, cfg runner.PipelineConfig, dbcfg configsqldb.Struct, store artifacts.Service) error {
	database, err := dbcfg.OpenDB(db.Schema)
	if err != nil {
		return err
	}

	service := runner.NewService(database, store, cfg, clock)
	return service.Schedule(cronner)
}
