// Package artifacts keeps the files a pipeline run leaves behind, the way a
// ci system keeps build artifacts: content on disk in a per-run directory,
// metadata in sqlite, everything expiring after its retention window.
package artifacts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"europarl-collector/lib/chrono"
	"europarl-collector/services/artifacts/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/artifacts")

const DefaultRetention = 7 * 24 * time.Hour

type Service struct {
	db    *sql.DB
	qry   *db.Queries
	root  string
	clock chrono.API
}

func NewService(database *sql.DB, root string, clock chrono.API) Service {
	return Service{
		db:    database,
		qry:   db.New(database),
		root:  root,
		clock: clock,
	}
}

type PutRequest struct {
	RunId      string
	Name       string
	SourcePath string
	// 0 falls back to DefaultRetention
	Retention time.Duration
}

// Put copies the source file into the store and records it under the given
// run and artifact name. putting the same name twice in one run replaces the
// earlier upload.
func (s Service) Put(ctx context.Context, req PutRequest) (db.Artifact, error) {
	ctx, span := tracer.Start(ctx, "Put")
	defer span.End()
	span.SetAttributes(
		attribute.String("run", req.RunId),
		attribute.String("name", req.Name),
	)

	retention := req.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	source, err := os.Open(req.SourcePath)
	if err != nil {
		// the caller decides whether a missing source file is fatal
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Artifact{}, err
	}
	defer source.Close()

	fileName := filepath.Base(req.SourcePath)
	dir := filepath.Join(s.root, req.RunId, req.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Artifact{}, err
	}
	destPath := filepath.Join(dir, fileName)

	dest, err := os.Create(destPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Artifact{}, err
	}

	digest := sha256.New()
	size, err := io.Copy(io.MultiWriter(dest, digest), source)
	if err != nil {
		dest.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Artifact{}, err
	}
	if err := dest.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Artifact{}, err
	}

	now := s.clock.Now()
	err = s.qry.CreateArtifact(ctx, db.CreateArtifactParams{
		RunID:     req.RunId,
		Name:      req.Name,
		FileName:  fileName,
		Path:      destPath,
		SizeBytes: size,
		Sha256:    hex.EncodeToString(digest.Sum(nil)),
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(retention).Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return db.Artifact{}, err
	}

	slog.InfoContext(ctx, "stored artifact",
		"run", req.RunId, "name", req.Name, "size", size)
	return s.qry.GetArtifact(ctx, db.GetArtifactParams{
		RunID: req.RunId,
		Name:  req.Name,
	})
}

// ForRun lists the artifacts one run produced.
func (s Service) ForRun(ctx context.Context, runId string) ([]db.Artifact, error) {
	ctx, span := tracer.Start(ctx, "ForRun")
	defer span.End()
	span.SetAttributes(attribute.String("run", runId))

	artifacts, err := s.qry.ListArtifactsByRun(ctx, runId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return artifacts, nil
}

// List lists every stored artifact, newest runs first.
func (s Service) List(ctx context.Context) ([]db.Artifact, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	artifacts, err := s.qry.ListArtifacts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return artifacts, nil
}

// Open returns a reader over a stored artifact's content.
func (s Service) Open(ctx context.Context, runId string, name string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "Open")
	defer span.End()
	span.SetAttributes(
		attribute.String("run", runId),
		attribute.String("name", name),
	)

	artifact, err := s.qry.GetArtifact(ctx, db.GetArtifactParams{
		RunID: runId,
		Name:  name,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return os.Open(artifact.Path)
}

// Prune deletes every artifact past its retention window, content first and
// metadata second, so a crash can leave an orphaned row but never an
// untracked file. emptied directories go too.
func (s Service) Prune(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Prune")
	defer span.End()

	expired, err := s.qry.ListExpiredArtifacts(ctx, s.clock.Now().Unix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	pruned := 0
	for _, artifact := range expired {
		if err := os.Remove(artifact.Path); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "remove artifact file", "path", artifact.Path, "err", err)
			continue
		}
		if err := s.qry.DeleteArtifact(ctx, artifact.ID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return pruned, err
		}
		// non-empty directories make os.Remove fail, which is fine
		os.Remove(filepath.Dir(artifact.Path))
		os.Remove(filepath.Dir(filepath.Dir(artifact.Path)))
		pruned++
	}

	if pruned > 0 {
		slog.InfoContext(ctx, "pruned expired artifacts", "count", pruned)
	}
	span.SetAttributes(attribute.Int("pruned", pruned))
	return pruned, nil
}
