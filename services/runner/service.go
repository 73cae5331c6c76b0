// Package runner executes the collection pipeline: provision a clean
// workspace, install the scraper's dependencies from the manifest, run the
// scraper as a foreground subprocess and keep whatever audit files it left
// behind as run artifacts. scheduled and manual triggers share one code
// path.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"europarl-collector/lib/chrono"
	"europarl-collector/lib/executil"
	"europarl-collector/services/artifacts"
	"europarl-collector/services/runner/db"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/runner")

// console output of the scraper subprocess, written into the workspace
// during the scrape step. configuring it as an artifact keeps it around.
const ScraperLogFile = "scraper.log"

type TriggerKind string

const (
	TriggerScheduled TriggerKind = "scheduled"
	TriggerManual    TriggerKind = "manual"
)

type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Stage string

const (
	StageProvision Stage = "provision"
	StageInstall   Stage = "install"
	StageScrape    Stage = "scrape"
	StageCollect   Stage = "collect"
	StageDone      Stage = "done"
)

type Service struct {
	db        *sql.DB
	qry       *db.Queries
	artifacts artifacts.Service
	config    PipelineConfig
	clock     chrono.API
	env       func(string) (string, bool)
}

func NewService(database *sql.DB, store artifacts.Service, config PipelineConfig, clock chrono.API) Service {
	return Service{
		db:        database,
		qry:       db.New(database),
		artifacts: store,
		config:    config,
		clock:     clock,
		env:       os.LookupEnv,
	}
}

// WithEnv returns a copy of the service that reads secrets from the given
// lookup instead of the process environment.
func (s Service) WithEnv(lookup func(string) (string, bool)) Service {
	s.env = lookup
	return s
}

// Schedule registers the recurring run on the given cron. manual triggers
// through Execute stay available regardless.
func (s Service) Schedule(cronner chrono.CronAPI) error {
	if s.config.Schedule == "" {
		return fmt.Errorf("no schedule is configured")
	}
	return cronner.Cron(s.config.Schedule, func() {
		if _, err := s.Execute(context.Background(), TriggerScheduled); err != nil {
			slog.Error("scheduled run failed", "err", err)
		}
	})
}

// Execute performs one pipeline run and returns its id. the returned error
// reflects the run outcome, the run record in the database always gets a
// final status either way.
func (s Service) Execute(ctx context.Context, trigger TriggerKind) (string, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()
	span.SetAttributes(attribute.String("trigger", string(trigger)))

	runId, err := newRunId(s.clock)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("run", runId))

	workspace := filepath.Join(s.workspaceRoot(), runId)
	err = s.qry.CreateRun(ctx, db.CreateRunParams{
		ID:          runId,
		TriggerKind: string(trigger),
		Status:      string(StatusRunning),
		Stage:       string(StageProvision),
		Workspace:   workspace,
		StartedAt:   s.clock.Now().Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	slog.InfoContext(ctx, "starting pipeline run", "run", runId, "trigger", trigger)
	runErr := s.execute(ctx, runId, workspace)
	if runErr != nil {
		slog.ErrorContext(ctx, "pipeline run failed", "run", runId, "err", runErr)
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		return runId, runErr
	}
	slog.InfoContext(ctx, "pipeline run succeeded", "run", runId)
	return runId, nil
}

type runOutcome struct {
	stage    Stage
	exitCode sql.NullInt64
}

func (s Service) execute(ctx context.Context, runId string, workspace string) (err error) {
	outcome := &runOutcome{stage: StageProvision}

	// the record gets its final status last, after everything below
	// (artifact collection included) has had its chance to run
	defer func() {
		s.finalize(context.WithoutCancel(ctx), runId, outcome, err)
	}()

	// provision: the credentials first, before anything external runs,
	// then a clean workspace
	secrets, err := s.resolveSecrets()
	if err != nil {
		return err
	}
	if err = s.provision(ctx, workspace); err != nil {
		return err
	}
	defer func() {
		if s.config.KeepWorkspace {
			return
		}
		if rmErr := os.RemoveAll(workspace); rmErr != nil {
			slog.WarnContext(ctx, "remove workspace", "workspace", workspace, "err", rmErr)
		}
	}()

	// install: dependencies from the manifest. a failure here is fatal and
	// the run keeps no artifacts, there is nothing trustworthy to keep.
	outcome.stage = StageInstall
	s.setStage(ctx, runId, StageInstall)
	if err = s.install(ctx, workspace); err != nil {
		return err
	}

	// from here on the audit files are collected no matter how the scrape
	// itself ends
	defer func() {
		s.collectArtifacts(context.WithoutCancel(ctx), runId, workspace)
	}()

	outcome.stage = StageScrape
	s.setStage(ctx, runId, StageScrape)
	exitCode, err := s.scrape(ctx, workspace, secrets)
	if exitCode >= 0 {
		outcome.exitCode = sql.NullInt64{Int64: int64(exitCode), Valid: true}
	}
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("the scraper exited with code %d", exitCode)
	}

	outcome.stage = StageDone
	return nil
}

// resolveSecrets reads every configured credential before the run does
// anything external. values stay in memory on their way to the scraper
// process, they are never logged and never written anywhere.
func (s Service) resolveSecrets() (map[string]string, error) {
	secrets := make(map[string]string, len(s.config.Scrape.Secrets))
	for _, name := range s.config.Scrape.Secrets {
		value, ok := s.env(name)
		if !ok || value == "" {
			return nil, fmt.Errorf("secret %s is not set", name)
		}
		secrets[name] = value
	}
	return secrets, nil
}

func (s Service) provision(ctx context.Context, workspace string) error {
	ctx, span := tracer.Start(ctx, "provision")
	defer span.End()

	// run ids are unique, but a leftover directory from a crashed run must
	// not leak into this one
	if err := os.RemoveAll(workspace); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if s.config.Setup.Manifest != "" {
		dest := filepath.Join(workspace, filepath.Base(s.config.Setup.Manifest))
		if err := copyFile(s.config.Setup.Manifest, dest); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("copy manifest: %w", err)
		}
	}

	slog.InfoContext(ctx, "provisioned workspace", "workspace", workspace)
	return nil
}

func (s Service) install(ctx context.Context, workspace string) error {
	ctx, span := tracer.Start(ctx, "install")
	defer span.End()

	if len(s.config.Setup.Command) == 0 {
		slog.InfoContext(ctx, "no install command configured, skipping")
		return nil
	}

	slog.InfoContext(ctx, "installing dependencies",
		"command", strings.Join(s.config.Setup.Command, " "))
	exitCode, err := executil.Run(ctx, executil.Cmd{
		Argv:   s.config.Setup.Command,
		Dir:    workspace,
		Env:    s.baseEnv(),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if exitCode != 0 {
		err := fmt.Errorf("the install command exited with code %d", exitCode)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Service) scrape(ctx context.Context, workspace string, secrets map[string]string) (int, error) {
	ctx, span := tracer.Start(ctx, "scrape")
	defer span.End()

	if minutes := s.config.Scrape.TimeoutMinutes; minutes > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(minutes)*time.Minute)
		defer cancel()
	}

	env := s.baseEnv()
	for name, value := range secrets {
		env = executil.SetEnv(env, name, value)
	}

	// everything the scraper prints is mirrored into the workspace, so a
	// failed run can keep its own console output as an artifact
	logFile, err := os.Create(filepath.Join(workspace, ScraperLogFile))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return -1, err
	}
	defer logFile.Close()

	// the command line is safe to log, credentials only travel through the
	// child environment
	slog.InfoContext(ctx, "starting scraper",
		"command", strings.Join(s.config.Scrape.Command, " "),
		"credentials", s.config.Scrape.Secrets)
	exitCode, err := executil.Run(ctx, executil.Cmd{
		Argv:   s.config.Scrape.Command,
		Dir:    workspace,
		Env:    env,
		Stdout: io.MultiWriter(os.Stdout, logFile),
		Stderr: io.MultiWriter(os.Stderr, logFile),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return exitCode, err
	}

	slog.InfoContext(ctx, "scraper finished", "exit_code", exitCode)
	span.SetAttributes(attribute.Int("exit_code", exitCode))
	return exitCode, nil
}

// baseEnv is the daemon environment with every configured secret removed.
// nothing that runs in the workspace sees a credential it was not handed
// explicitly.
func (s Service) baseEnv() []string {
	return executil.ScrubEnv(os.Environ(), s.config.Scrape.Secrets)
}

// collectArtifacts stores whatever audit files the run left behind. it runs
// for failed scrapes too, and a missing file is a warning for that one
// artifact, never an error for the run.
func (s Service) collectArtifacts(ctx context.Context, runId string, workspace string) {
	ctx, span := tracer.Start(ctx, "collectArtifacts")
	defer span.End()

	s.setStage(ctx, runId, StageCollect)

	stored := 0
	for _, artifact := range s.config.Artifacts {
		_, err := s.artifacts.Put(ctx, artifacts.PutRequest{
			RunId:      runId,
			Name:       artifact.Name,
			SourcePath: filepath.Join(workspace, artifact.File),
			Retention:  time.Duration(artifact.RetentionDays) * 24 * time.Hour,
		})
		if os.IsNotExist(err) {
			slog.WarnContext(ctx, "artifact file is missing",
				"run", runId, "name", artifact.Name, "file", artifact.File)
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "store artifact",
				"run", runId, "name", artifact.Name, "err", err)
			span.RecordError(err)
			continue
		}
		stored++
	}
	span.SetAttributes(attribute.Int("stored", stored))
}

func (s Service) finalize(ctx context.Context, runId string, outcome *runOutcome, runErr error) {
	ctx, span := tracer.Start(ctx, "finalize")
	defer span.End()

	status := StatusSuccess
	message := ""
	if runErr != nil {
		status = StatusFailure
		message = runErr.Error()
	}

	err := s.qry.FinishRun(ctx, db.FinishRunParams{
		Status:         string(status),
		Stage:          string(outcome.stage),
		Error:          message,
		ScrapeExitCode: outcome.exitCode,
		FinishedAt:     s.clock.Now().Unix(),
		ID:             runId,
	})
	if err != nil {
		slog.ErrorContext(ctx, "finish run record", "run", runId, "err", err)
		span.RecordError(err)
	}
}

func (s Service) setStage(ctx context.Context, runId string, stage Stage) {
	err := s.qry.SetRunStage(ctx, db.SetRunStageParams{
		Stage: string(stage),
		ID:    runId,
	})
	if err != nil {
		slog.WarnContext(ctx, "update run stage", "run", runId, "stage", stage, "err", err)
	}
}

// GetRun looks up one run record.
func (s Service) GetRun(ctx context.Context, runId string) (db.Run, error) {
	ctx, span := tracer.Start(ctx, "GetRun")
	defer span.End()

	run, err := s.qry.GetRun(ctx, runId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Run{}, err
	}
	return run, nil
}

// ListRuns lists the most recent runs, newest first.
func (s Service) ListRuns(ctx context.Context, limit int64) ([]db.Run, error) {
	ctx, span := tracer.Start(ctx, "ListRuns")
	defer span.End()

	if limit <= 0 {
		limit = 20
	}
	runs, err := s.qry.ListRuns(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return runs, nil
}

func (s Service) workspaceRoot() string {
	if s.config.WorkspaceRoot != "" {
		return s.config.WorkspaceRoot
	}
	return filepath.Join(os.TempDir(), "europarl-collector")
}

func newRunId(clock chrono.API) (string, error) {
	suffix, err := random.String(6)
	if err != nil {
		return "", err
	}
	return clock.Now().Format("20060102-150405") + "-" + strings.ToLower(suffix), nil
}

func copyFile(source string, dest string) error {
	content, err := os.ReadFile(source)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, content, 0644)
}
