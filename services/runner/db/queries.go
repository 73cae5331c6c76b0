package db

import (
	"context"
	"database/sql"
)

const createRun = `
INSERT INTO runs (id, trigger_kind, status, stage, workspace, started_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateRunParams struct {
	ID          string
	TriggerKind string
	Status      string
	Stage       string
	Workspace   string
	StartedAt   int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.TriggerKind,
		arg.Status,
		arg.Stage,
		arg.Workspace,
		arg.StartedAt,
	)
	return err
}

const setRunStage = `
UPDATE runs SET stage = ? WHERE id = ?
`

type SetRunStageParams struct {
	Stage string
	ID    string
}

func (q *Queries) SetRunStage(ctx context.Context, arg SetRunStageParams) error {
	_, err := q.db.ExecContext(ctx, setRunStage, arg.Stage, arg.ID)
	return err
}

const finishRun = `
UPDATE runs
SET status = ?, stage = ?, error = ?, scrape_exit_code = ?, finished_at = ?
WHERE id = ?
`

type FinishRunParams struct {
	Status         string
	Stage          string
	Error          string
	ScrapeExitCode sql.NullInt64
	FinishedAt     int64
	ID             string
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun,
		arg.Status,
		arg.Stage,
		arg.Error,
		arg.ScrapeExitCode,
		arg.FinishedAt,
		arg.ID,
	)
	return err
}

const getRun = `
SELECT id, trigger_kind, status, stage, error, scrape_exit_code, workspace, started_at, finished_at
FROM runs
WHERE id = ?
`

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var r Run
	err := row.Scan(
		&r.ID,
		&r.TriggerKind,
		&r.Status,
		&r.Stage,
		&r.Error,
		&r.ScrapeExitCode,
		&r.Workspace,
		&r.StartedAt,
		&r.FinishedAt,
	)
	return r, err
}

const listRuns = `
SELECT id, trigger_kind, status, stage, error, scrape_exit_code, workspace, started_at, finished_at
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(
			&r.ID,
			&r.TriggerKind,
			&r.Status,
			&r.Stage,
			&r.Error,
			&r.ScrapeExitCode,
			&r.Workspace,
			&r.StartedAt,
			&r.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
