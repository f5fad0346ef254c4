package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

func TestStore_Versions(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	spec := models.ArtifactSpec{Name: "sample.csv", Type: "raw_data", Description: "raw listings"}

	v0, err := store.CreateVersion(ctx, spec, []artifact.FileContent{{Name: "sample.csv", Data: []byte("price\n1\n")}})
	require.NoError(t, err)
	v1, err := store.CreateVersion(ctx, spec, []artifact.FileContent{{Name: "sample.csv", Data: []byte("price\n2\n")}})
	require.NoError(t, err)

	assert.Equal(t, "v0", v0.Alias)
	assert.Equal(t, "v1", v1.Alias)
	assert.Equal(t, models.ArtifactStateCommitted, v1.State)
	assert.NotEqual(t, v0.ID, v1.ID)

	t.Run("latest", func(t *testing.T) {
		got, err := store.GetVersion(ctx, "sample.csv", artifact.LatestAlias)
		require.NoError(t, err)
		assert.Equal(t, v1.ID, got.ID)
		assert.Equal(t, v1.Digest, got.Digest)
	})

	t.Run("pinned", func(t *testing.T) {
		got, err := store.GetVersion(ctx, "sample.csv", "v0")
		require.NoError(t, err)
		assert.Equal(t, v0.ID, got.ID)
	})

	t.Run("by id", func(t *testing.T) {
		got, err := store.GetVersionByID(ctx, v0.ID)
		require.NoError(t, err)
		assert.Equal(t, "v0", got.Alias)
	})

	t.Run("read file", func(t *testing.T) {
		data, err := store.ReadFile(ctx, v0.ID, "sample.csv")
		require.NoError(t, err)
		assert.Equal(t, "price\n1\n", string(data))
	})

	t.Run("list", func(t *testing.T) {
		versions, err := store.ListVersions(ctx, "sample.csv")
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 0, versions[0].Version)
		assert.Equal(t, 1, versions[1].Version)
	})
}

func TestStore_PendingVersionIsSkipped(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := New(root)
	require.NoError(t, err)

	spec := models.ArtifactSpec{Name: "sample.csv", Type: "raw_data"}
	v0, err := store.CreateVersion(ctx, spec, []artifact.FileContent{{Name: "sample.csv", Data: []byte("a")}})
	require.NoError(t, err)

	// a crashed writer leaves a version directory without a manifest
	require.NoError(t, os.Mkdir(filepath.Join(root, "sample.csv", "v1"), 0o755))

	latest, err := store.GetVersion(ctx, "sample.csv", artifact.LatestAlias)
	require.NoError(t, err)
	assert.Equal(t, v0.ID, latest.ID)

	_, err = store.GetVersion(ctx, "sample.csv", "v1")
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	v2, err := store.CreateVersion(ctx, spec, []artifact.FileContent{{Name: "sample.csv", Data: []byte("b")}})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.GetVersion(ctx, "nothing", artifact.LatestAlias)
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	_, err = store.GetVersionByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestStore_RejectsBadFileNames(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	spec := models.ArtifactSpec{Name: "sample.csv", Type: "raw_data"}
	for _, name := range []string{"../escape.csv", "manifest.yaml", ""} {
		_, err := store.CreateVersion(context.Background(), spec, []artifact.FileContent{{Name: name, Data: []byte("x")}})
		assert.ErrorIs(t, err, artifact.ErrInvalidArtifact, name)
	}
}

func TestStore_ThroughBackendStore(t *testing.T) {
	ctx := context.Background()
	backend, err := New(t.TempDir())
	require.NoError(t, err)
	store := artifact.NewBackendStore(backend, t.TempDir())

	src := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(src, []byte("price,last_review\n50,2019-05-21\n"), 0o644))

	a := artifact.New("sample.csv", "raw_data", "raw listings")
	a.AddFile(src)
	v, err := store.Publish(ctx, a)
	require.NoError(t, err)
	require.NoError(t, store.Wait(ctx, v))

	path, err := store.Resolve(ctx, artifact.Ref{Name: "sample.csv", Alias: v.Alias})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "price,last_review\n50,2019-05-21\n", string(data))
}
