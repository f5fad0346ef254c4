package repository

import (
	"context"

	"pricing-pipeline/internal/artifact"
)

// ArtifactRepository is an artifact.Backend that also owns its schema.
type ArtifactRepository interface {
	artifact.Backend
	// EnsureSchema creates the tables if they do not exist.
	EnsureSchema(ctx context.Context) error
	// Ping checks connectivity to the database.
	Ping(ctx context.Context) error
}
