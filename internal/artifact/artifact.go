// Package artifact defines versioned, immutable artifacts and the store
// contract the pipeline steps use to consume and produce them.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pricing-pipeline/pkg/models"
)

// Artifact is a new version being assembled by a producer. It becomes
// immutable once published.
type Artifact struct {
	Name        string
	Type        string
	Description string
	Files       []string
	Metadata    map[string]string
	Inputs      []Ref
}

// New creates an empty artifact with the given name, type and description.
func New(name, typ, description string) *Artifact {
	return &Artifact{
		Name:        name,
		Type:        typ,
		Description: description,
		Metadata:    map[string]string{},
	}
}

// AddFile attaches a local file. The file is stored under its base name.
func (a *Artifact) AddFile(path string) {
	a.Files = append(a.Files, path)
}

// Use records an input artifact in the lineage of this one.
func (a *Artifact) Use(ref Ref) {
	a.Inputs = append(a.Inputs, ref)
}

// Validate checks that the artifact can be published.
func (a *Artifact) Validate() error {
	if err := ValidateName(a.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if a.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidArtifact)
	}
	if len(a.Files) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArtifact, ErrNoFiles)
	}
	seen := make(map[string]bool, len(a.Files))
	for _, path := range a.Files {
		base := filepath.Base(path)
		if seen[base] {
			return fmt.Errorf("%w: duplicate file name %q", ErrInvalidArtifact, base)
		}
		seen[base] = true
	}
	return nil
}

// Spec returns the publish request for the artifact.
func (a *Artifact) Spec() models.ArtifactSpec {
	inputs := make([]string, 0, len(a.Inputs))
	for _, in := range a.Inputs {
		inputs = append(inputs, in.String())
	}
	return models.ArtifactSpec{
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		Metadata:    a.Metadata,
		Inputs:      inputs,
	}
}

// ReadFiles loads the attached files into memory.
func (a *Artifact) ReadFiles() ([]FileContent, error) {
	files := make([]FileContent, 0, len(a.Files))
	for _, path := range a.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact file: %w", err)
		}
		files = append(files, FileContent{Name: filepath.Base(path), Data: data})
	}
	return files, nil
}

// FileContent is one file of an artifact held in memory.
type FileContent struct {
	Name string
	Data []byte
}

// Store resolves artifact references to local files and durably persists new
// artifacts.
type Store interface {
	// Resolve downloads the referenced artifact file and returns its local path.
	Resolve(ctx context.Context, ref Ref) (string, error)
	// Publish uploads a new version of the artifact.
	Publish(ctx context.Context, a *Artifact) (*models.ArtifactVersion, error)
	// Wait blocks until the published version is committed.
	Wait(ctx context.Context, v *models.ArtifactVersion) error
}

// Backend is the storage contract behind a Store: it keeps versions and their
// file contents.
type Backend interface {
	// CreateVersion stores the files as the next version of spec.Name.
	CreateVersion(ctx context.Context, spec models.ArtifactSpec, files []FileContent) (*models.ArtifactVersion, error)
	// GetVersion returns the version matching the alias ("latest" or "vN").
	GetVersion(ctx context.Context, name, alias string) (*models.ArtifactVersion, error)
	// GetVersionByID returns a version by its id.
	GetVersionByID(ctx context.Context, id string) (*models.ArtifactVersion, error)
	// ListVersions returns all committed versions of an artifact, oldest first.
	ListVersions(ctx context.Context, name string) ([]*models.ArtifactVersion, error)
	// ReadFile returns the content of one file of a version.
	ReadFile(ctx context.Context, versionID, file string) ([]byte, error)
}

// SelectFile picks the file a reference points at within a version.
func SelectFile(v *models.ArtifactVersion, file string) (models.ArtifactFile, error) {
	if file != "" {
		f, ok := v.File(file)
		if !ok {
			return models.ArtifactFile{}, fmt.Errorf("%w: file %q in %s", ErrNotFound, file, v.Ref())
		}
		return f, nil
	}
	switch len(v.Files) {
	case 0:
		return models.ArtifactFile{}, fmt.Errorf("%s: %w", v.Ref(), ErrNoFiles)
	case 1:
		return v.Files[0], nil
	default:
		return models.ArtifactFile{}, fmt.Errorf("%s: %w", v.Ref(), ErrMultipleFiles)
	}
}
