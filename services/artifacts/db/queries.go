package db

import "context"

const createArtifact = `
INSERT INTO artifacts (run_id, name, file_name, path, size_bytes, sha256, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, name) DO UPDATE SET
    file_name = excluded.file_name,
    path = excluded.path,
    size_bytes = excluded.size_bytes,
    sha256 = excluded.sha256,
    created_at = excluded.created_at,
    expires_at = excluded.expires_at
`

type CreateArtifactParams struct {
	RunID     string
	Name      string
	FileName  string
	Path      string
	SizeBytes int64
	Sha256    string
	CreatedAt int64
	ExpiresAt int64
}

func (q *Queries) CreateArtifact(ctx context.Context, arg CreateArtifactParams) error {
	_, err := q.db.ExecContext(ctx, createArtifact,
		arg.RunID,
		arg.Name,
		arg.FileName,
		arg.Path,
		arg.SizeBytes,
		arg.Sha256,
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return err
}

const getArtifact = `
SELECT id, run_id, name, file_name, path, size_bytes, sha256, created_at, expires_at
FROM artifacts
WHERE run_id = ? AND name = ?
`

type GetArtifactParams struct {
	RunID string
	Name  string
}

func (q *Queries) GetArtifact(ctx context.Context, arg GetArtifactParams) (Artifact, error) {
	row := q.db.QueryRowContext(ctx, getArtifact, arg.RunID, arg.Name)
	var a Artifact
	err := row.Scan(
		&a.ID,
		&a.RunID,
		&a.Name,
		&a.FileName,
		&a.Path,
		&a.SizeBytes,
		&a.Sha256,
		&a.CreatedAt,
		&a.ExpiresAt,
	)
	return a, err
}

const listArtifactsByRun = `
SELECT id, run_id, name, file_name, path, size_bytes, sha256, created_at, expires_at
FROM artifacts
WHERE run_id = ?
ORDER BY name
`

func (q *Queries) ListArtifactsByRun(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := q.db.QueryContext(ctx, listArtifactsByRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		err := rows.Scan(
			&a.ID,
			&a.RunID,
			&a.Name,
			&a.FileName,
			&a.Path,
			&a.SizeBytes,
			&a.Sha256,
			&a.CreatedAt,
			&a.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

const listArtifacts = `
SELECT id, run_id, name, file_name, path, size_bytes, sha256, created_at, expires_at
FROM artifacts
ORDER BY created_at DESC, name
`

func (q *Queries) ListArtifacts(ctx context.Context) ([]Artifact, error) {
	rows, err := q.db.QueryContext(ctx, listArtifacts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		err := rows.Scan(
			&a.ID,
			&a.RunID,
			&a.Name,
			&a.FileName,
			&a.Path,
			&a.SizeBytes,
			&a.Sha256,
			&a.CreatedAt,
			&a.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

const listExpiredArtifacts = `
SELECT id, run_id, name, file_name, path, size_bytes, sha256, created_at, expires_at
FROM artifacts
WHERE expires_at <= ?
ORDER BY id
`

func (q *Queries) ListExpiredArtifacts(ctx context.Context, expiresAt int64) ([]Artifact, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredArtifacts, expiresAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		err := rows.Scan(
			&a.ID,
			&a.RunID,
			&a.Name,
			&a.FileName,
			&a.Path,
			&a.SizeBytes,
			&a.Sha256,
			&a.CreatedAt,
			&a.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

const deleteArtifact = `
DELETE FROM artifacts WHERE id = ?
`

func (q *Queries) DeleteArtifact(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteArtifact, id)
	return err
}
