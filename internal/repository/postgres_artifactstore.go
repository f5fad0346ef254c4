package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

const versionColumns = "id, name, type, description, version, digest, metadata, inputs, state, created_at"

// PostgresArtifactStore is a PostgreSQL implementation of ArtifactRepository.
// File contents are stored inline as bytea.
type PostgresArtifactStore struct {
	db *pgxpool.Pool
}

// NewPostgresArtifactStore creates a new PostgresArtifactStore.
func NewPostgresArtifactStore(db *pgxpool.Pool) *PostgresArtifactStore {
	return &PostgresArtifactStore{db: db}
}

// Connect opens a pool for dsn and checks that the database answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresArtifactStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks connectivity to the database.
func (s *PostgresArtifactStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// CreateVersion stores the files as the next version of spec.Name. Version
// numbers are allocated under a per-name advisory lock, so concurrent
// publishers get consecutive versions. The version is committed when the
// transaction is.
func (s *PostgresArtifactStore) CreateVersion(ctx context.Context, spec models.ArtifactSpec, files []artifact.FileContent) (*models.ArtifactVersion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", spec.Name); err != nil {
		return nil, fmt.Errorf("failed to lock artifact %s: %w", spec.Name, err)
	}

	var next int
	err = tx.QueryRow(ctx, "SELECT COALESCE(MAX(version), -1) + 1 FROM artifact_versions WHERE name = $1", spec.Name).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate version: %w", err)
	}

	digest, entries := artifact.Describe(files)
	metadata := spec.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	inputs := spec.Inputs
	if inputs == nil {
		inputs = []string{}
	}

	v := &models.ArtifactVersion{
		ID:          uuid.New().String(),
		Name:        spec.Name,
		Type:        spec.Type,
		Description: spec.Description,
		Version:     next,
		Alias:       artifact.VersionAlias(next),
		Digest:      digest,
		Metadata:    metadata,
		Inputs:      inputs,
		Files:       entries,
		State:       models.ArtifactStateCommitted,
	}

	err = tx.QueryRow(ctx,
		"INSERT INTO artifact_versions (id, name, type, description, version, digest, metadata, inputs, state) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at",
		v.ID, v.Name, v.Type, v.Description, v.Version, v.Digest, v.Metadata, v.Inputs, string(v.State),
	).Scan(&v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert version: %w", err)
	}

	for _, f := range files {
		_, err := tx.Exec(ctx,
			"INSERT INTO artifact_files (version_id, name, size, digest, content) VALUES ($1, $2, $3, $4, $5)",
			v.ID, f.Name, int64(len(f.Data)), artifact.FileDigest(f.Data), f.Data,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert file %s: %w", f.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit version: %w", err)
	}
	return v, nil
}

// GetVersion returns the version matching alias ("latest" or "vN").
func (s *PostgresArtifactStore) GetVersion(ctx context.Context, name, alias string) (*models.ArtifactVersion, error) {
	ref := artifact.Ref{Name: name, Alias: alias}

	var row pgx.Row
	if n, ok := ref.Version(); ok {
		row = s.db.QueryRow(ctx, "SELECT "+versionColumns+" FROM artifact_versions WHERE name = $1 AND version = $2", name, n)
	} else if ref.IsLatest() {
		row = s.db.QueryRow(ctx, "SELECT "+versionColumns+" FROM artifact_versions WHERE name = $1 ORDER BY version DESC LIMIT 1", name)
	} else {
		return nil, fmt.Errorf("%w: %s", artifact.ErrInvalidRef, ref)
	}

	v, err := scanVersion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, ref)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFiles(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetVersionByID returns a version by its id.
func (s *PostgresArtifactStore) GetVersionByID(ctx context.Context, id string) (*models.ArtifactVersion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: version id %s", artifact.ErrNotFound, id)
	}
	v, err := scanVersion(s.db.QueryRow(ctx, "SELECT "+versionColumns+" FROM artifact_versions WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: version id %s", artifact.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadFiles(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListVersions returns all versions of an artifact, oldest first.
func (s *PostgresArtifactStore) ListVersions(ctx context.Context, name string) ([]*models.ArtifactVersion, error) {
	rows, err := s.db.Query(ctx, "SELECT "+versionColumns+" FROM artifact_versions WHERE name = $1 ORDER BY version", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.ArtifactVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, v := range versions {
		if err := s.loadFiles(ctx, v); err != nil {
			return nil, err
		}
	}
	return versions, nil
}

// ReadFile returns the content of one file of a version.
func (s *PostgresArtifactStore) ReadFile(ctx context.Context, versionID, file string) ([]byte, error) {
	if _, err := uuid.Parse(versionID); err != nil {
		return nil, fmt.Errorf("%w: version id %s", artifact.ErrNotFound, versionID)
	}
	var content []byte
	err := s.db.QueryRow(ctx, "SELECT content FROM artifact_files WHERE version_id = $1 AND name = $2", versionID, file).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: file %q of version %s", artifact.ErrNotFound, file, versionID)
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (s *PostgresArtifactStore) loadFiles(ctx context.Context, v *models.ArtifactVersion) error {
	rows, err := s.db.Query(ctx, "SELECT name, size, digest FROM artifact_files WHERE version_id = $1 ORDER BY name", v.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	v.Files = v.Files[:0]
	for rows.Next() {
		var f models.ArtifactFile
		if err := rows.Scan(&f.Name, &f.Size, &f.Digest); err != nil {
			return err
		}
		v.Files = append(v.Files, f)
	}
	return rows.Err()
}

func scanVersion(row pgx.Row) (*models.ArtifactVersion, error) {
	var v models.ArtifactVersion
	var state string
	err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Description, &v.Version, &v.Digest, &v.Metadata, &v.Inputs, &state, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.Alias = artifact.VersionAlias(v.Version)
	v.State = models.ArtifactState(state)
	return &v, nil
}
