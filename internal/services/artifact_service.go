package services

import (
	"context"
	"fmt"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ArtifactService is a service for publishing and reading artifacts.
type ArtifactService struct {
	backend artifact.Backend
	logger  Logger
}

// NewArtifactService creates a new ArtifactService.
func NewArtifactService(backend artifact.Backend, logger Logger) *ArtifactService {
	return &ArtifactService{
		backend: backend,
		logger:  logger,
	}
}

// Publish validates and stores a new version.
func (s *ArtifactService) Publish(ctx context.Context, spec models.ArtifactSpec, files []artifact.FileContent) (*models.ArtifactVersion, error) {
	if err := artifact.ValidateName(spec.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInvalidArtifact, err)
	}
	if spec.Type == "" {
		return nil, fmt.Errorf("%w: type is required", artifact.ErrInvalidArtifact)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", artifact.ErrInvalidArtifact, artifact.ErrNoFiles)
	}
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if err := artifact.ValidateName(f.Name); err != nil {
			return nil, fmt.Errorf("%w: file: %v", artifact.ErrInvalidArtifact, err)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("%w: duplicate file name %q", artifact.ErrInvalidArtifact, f.Name)
		}
		seen[f.Name] = true
	}
	for _, in := range spec.Inputs {
		if _, err := artifact.ParseRef(in); err != nil {
			return nil, fmt.Errorf("%w: input: %v", artifact.ErrInvalidArtifact, err)
		}
	}

	v, err := s.backend.CreateVersion(ctx, spec, files)
	if err != nil {
		s.logger.Error("failed to publish artifact", "name", spec.Name, "error", err)
		return nil, err
	}
	s.logger.Info("published artifact", "ref", v.Ref(), "type", v.Type, "digest", v.Digest, "files", len(v.Files))
	return v, nil
}

// Resolve returns the version a reference points at.
func (s *ArtifactService) Resolve(ctx context.Context, ref artifact.Ref) (*models.ArtifactVersion, error) {
	return s.backend.GetVersion(ctx, ref.Name, ref.Alias)
}

// Version returns a version by id.
func (s *ArtifactService) Version(ctx context.Context, id string) (*models.ArtifactVersion, error) {
	return s.backend.GetVersionByID(ctx, id)
}

// History lists all versions of an artifact, oldest first.
func (s *ArtifactService) History(ctx context.Context, name string) ([]*models.ArtifactVersion, error) {
	if err := artifact.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInvalidRef, err)
	}
	versions, err := s.backend.ListVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, name)
	}
	return versions, nil
}

// Download returns the content of the file a reference points at.
func (s *ArtifactService) Download(ctx context.Context, ref artifact.Ref) (models.ArtifactFile, []byte, error) {
	v, err := s.backend.GetVersion(ctx, ref.Name, ref.Alias)
	if err != nil {
		return models.ArtifactFile{}, nil, err
	}
	f, err := artifact.SelectFile(v, ref.File)
	if err != nil {
		return models.ArtifactFile{}, nil, err
	}
	data, err := s.backend.ReadFile(ctx, v.ID, f.Name)
	if err != nil {
		return models.ArtifactFile{}, nil, err
	}
	return f, data, nil
}
