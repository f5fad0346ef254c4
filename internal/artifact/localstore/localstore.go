// Package localstore keeps artifact versions in a directory tree:
//
//	<root>/<name>/v<N>/<files...>
//	<root>/<name>/v<N>/manifest.yaml
//
// A version is committed once its manifest exists. The manifest is written
// last through a rename, so a version directory without one is still pending.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

const manifestName = "manifest.yaml"

// Store is a filesystem implementation of artifact.Backend.
type Store struct {
	root string
	now  func() time.Time
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &Store{root: dir, now: time.Now}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// CreateVersion writes the files as the next version of spec.Name.
func (s *Store) CreateVersion(ctx context.Context, spec models.ArtifactSpec, files []artifact.FileContent) (*models.ArtifactVersion, error) {
	if err := artifact.ValidateName(spec.Name); err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInvalidArtifact, err)
	}
	for _, f := range files {
		if err := artifact.ValidateName(f.Name); err != nil || f.Name == manifestName {
			return nil, fmt.Errorf("%w: bad file name %q", artifact.ErrInvalidArtifact, f.Name)
		}
	}

	dir, n, err := s.allocate(spec.Name)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := artifact.WriteFileAtomic(filepath.Join(dir, f.Name), f.Data); err != nil {
			return nil, err
		}
	}

	digest, entries := artifact.Describe(files)
	v := &models.ArtifactVersion{
		ID:          uuid.New().String(),
		Name:        spec.Name,
		Type:        spec.Type,
		Description: spec.Description,
		Version:     n,
		Alias:       artifact.VersionAlias(n),
		Digest:      digest,
		Metadata:    spec.Metadata,
		Inputs:      spec.Inputs,
		Files:       entries,
		State:       models.ArtifactStateCommitted,
		CreatedAt:   s.now().UTC(),
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := artifact.WriteFileAtomic(filepath.Join(dir, manifestName), data); err != nil {
		return nil, err
	}
	return v, nil
}

// allocate claims the next free version directory. os.Mkdir fails on an
// existing directory, so concurrent writers never share a version.
func (s *Store) allocate(name string) (string, int, error) {
	base := filepath.Join(s.root, name)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	nums, err := s.versionNumbers(name)
	if err != nil {
		return "", 0, err
	}
	n := 0
	if len(nums) > 0 {
		n = nums[len(nums)-1] + 1
	}
	for {
		dir := filepath.Join(base, artifact.VersionAlias(n))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, n, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", 0, fmt.Errorf("failed to create version directory: %w", err)
		}
		n++
	}
}

// versionNumbers lists every version directory of name, pending ones
// included, in ascending order.
func (s *Store) versionNumbers(name string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	var nums []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ref := artifact.Ref{Alias: e.Name()}
		if n, ok := ref.Version(); ok {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (s *Store) readManifest(name string, n int) (*models.ArtifactVersion, error) {
	data, err := os.ReadFile(filepath.Join(s.root, name, artifact.VersionAlias(n), manifestName))
	if err != nil {
		return nil, err
	}
	var v models.ArtifactVersion
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode manifest of %s:%s: %w", name, artifact.VersionAlias(n), err)
	}
	return &v, nil
}

// GetVersion returns the committed version matching alias.
func (s *Store) GetVersion(ctx context.Context, name, alias string) (*models.ArtifactVersion, error) {
	if err := artifact.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInvalidRef, err)
	}
	ref := artifact.Ref{Name: name, Alias: alias}
	if n, ok := ref.Version(); ok {
		v, err := s.readManifest(name, n)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, ref)
		}
		return v, err
	}
	if !ref.IsLatest() {
		return nil, fmt.Errorf("%w: %s", artifact.ErrInvalidRef, ref)
	}

	versions, err := s.ListVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, ref)
	}
	return versions[len(versions)-1], nil
}

// GetVersionByID scans the manifests for the version with the given id.
func (s *Store) GetVersionByID(ctx context.Context, id string) (*models.ArtifactVersion, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "*", "v*", manifestName))
	if err != nil {
		return nil, err
	}
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		var v models.ArtifactVersion
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
		}
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("%w: version id %s", artifact.ErrNotFound, id)
}

// ListVersions returns the committed versions of name, oldest first.
func (s *Store) ListVersions(ctx context.Context, name string) ([]*models.ArtifactVersion, error) {
	if err := artifact.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInvalidRef, err)
	}
	nums, err := s.versionNumbers(name)
	if err != nil {
		return nil, err
	}
	versions := make([]*models.ArtifactVersion, 0, len(nums))
	for _, n := range nums {
		v, err := s.readManifest(name, n)
		if errors.Is(err, fs.ErrNotExist) {
			continue // pending
		}
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// ReadFile returns the content of one file of a version.
func (s *Store) ReadFile(ctx context.Context, versionID, file string) ([]byte, error) {
	v, err := s.GetVersionByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if _, ok := v.File(file); !ok {
		return nil, fmt.Errorf("%w: file %q in %s", artifact.ErrNotFound, file, v.Ref())
	}
	return os.ReadFile(filepath.Join(s.root, v.Name, v.Alias, file))
}
