package artifact

import (
	"context"
	"fmt"
	"time"

	"pricing-pipeline/pkg/models"
)

// BackendStore is a Store talking directly to a Backend, materializing
// resolved files under a local cache directory.
type BackendStore struct {
	backend      Backend
	cacheDir     string
	pollInterval time.Duration
}

// NewBackendStore creates a BackendStore.
func NewBackendStore(backend Backend, cacheDir string) *BackendStore {
	return &BackendStore{
		backend:      backend,
		cacheDir:     cacheDir,
		pollInterval: DefaultPollInterval,
	}
}

// Resolve downloads the referenced file into the cache and returns its path.
func (s *BackendStore) Resolve(ctx context.Context, ref Ref) (string, error) {
	v, err := s.backend.GetVersion(ctx, ref.Name, ref.Alias)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	f, err := SelectFile(v, ref.File)
	if err != nil {
		return "", err
	}

	path := CachePath(s.cacheDir, v, f.Name)
	if Cached(path, f) {
		return path, nil
	}

	data, err := s.backend.ReadFile(ctx, v.ID, f.Name)
	if err != nil {
		return "", fmt.Errorf("failed to download %s/%s: %w", v.Ref(), f.Name, err)
	}
	if FileDigest(data) != f.Digest {
		return "", fmt.Errorf("%s/%s: %w", v.Ref(), f.Name, ErrDigestMismatch)
	}
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Publish stores the artifact's files as a new version.
func (s *BackendStore) Publish(ctx context.Context, a *Artifact) (*models.ArtifactVersion, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	files, err := a.ReadFiles()
	if err != nil {
		return nil, err
	}
	v, err := s.backend.CreateVersion(ctx, a.Spec(), files)
	if err != nil {
		return nil, fmt.Errorf("failed to publish %s: %w", a.Name, err)
	}
	return v, nil
}

// Wait blocks until the version is committed in the backend.
func (s *BackendStore) Wait(ctx context.Context, v *models.ArtifactVersion) error {
	return PollCommitted(ctx, v, s.pollInterval, s.backend.GetVersionByID)
}
