package db

import "database/sql"

type Run struct {
	ID          string
	TriggerKind string
	Status      string
	Stage       string
	Error       string
	// null until the scraper process has actually run
	ScrapeExitCode sql.NullInt64
	Workspace      string
	StartedAt      int64
	// null while the run is still going
	FinishedAt sql.NullInt64
}
