package services

import (
	"context"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

// Artifacts is the artifact catalogue exposed to the HTTP API and MCP tools.
type Artifacts interface {
	// Publish validates and stores a new version.
	Publish(ctx context.Context, spec models.ArtifactSpec, files []artifact.FileContent) (*models.ArtifactVersion, error)
	// Resolve returns the version a reference points at.
	Resolve(ctx context.Context, ref artifact.Ref) (*models.ArtifactVersion, error)
	// Version returns a version by id.
	Version(ctx context.Context, id string) (*models.ArtifactVersion, error)
	// History lists all versions of an artifact.
	History(ctx context.Context, name string) ([]*models.ArtifactVersion, error)
	// Download returns the content of the file a reference points at.
	Download(ctx context.Context, ref artifact.Ref) (models.ArtifactFile, []byte, error)
}
