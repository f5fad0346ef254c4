package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

func TestPostgresArtifactStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := Connect(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresArtifactStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema must be re-appliable")
	require.NoError(t, store.Ping(ctx))

	spec := models.ArtifactSpec{
		Name:        "sample.csv",
		Type:        "raw_data",
		Description: "raw listings",
		Metadata:    map[string]string{"source": "test"},
	}
	raw := []byte("id,price,last_review\n1,50,2019-05-21\n")

	var first *models.ArtifactVersion

	t.Run("CreateVersion and GetVersion", func(t *testing.T) {
		v, err := store.CreateVersion(ctx, spec, []artifact.FileContent{{Name: "sample.csv", Data: raw}})
		require.NoError(t, err)
		assert.Equal(t, 0, v.Version)
		assert.Equal(t, "v0", v.Alias)
		assert.False(t, v.CreatedAt.IsZero())
		first = v

		got, err := store.GetVersion(ctx, "sample.csv", artifact.LatestAlias)
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.ID)
		assert.Equal(t, v.Digest, got.Digest)
		assert.Equal(t, "test", got.Metadata["source"])
		assert.Equal(t, models.ArtifactStateCommitted, got.State)
		require.Len(t, got.Files, 1)
		assert.Equal(t, int64(len(raw)), got.Files[0].Size)
	})

	t.Run("ReadFile", func(t *testing.T) {
		data, err := store.ReadFile(ctx, first.ID, "sample.csv")
		require.NoError(t, err)
		assert.Equal(t, raw, data)

		_, err = store.ReadFile(ctx, first.ID, "other.csv")
		assert.ErrorIs(t, err, artifact.ErrNotFound)
	})

	t.Run("Lineage", func(t *testing.T) {
		out := models.ArtifactSpec{Name: "clean.csv", Type: "clean_sample", Inputs: []string{"sample.csv:v0"}}
		v, err := store.CreateVersion(ctx, out, []artifact.FileContent{{Name: "clean.csv", Data: raw}})
		require.NoError(t, err)

		got, err := store.GetVersionByID(ctx, v.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"sample.csv:v0"}, got.Inputs)
	})

	t.Run("Concurrent publishers get distinct versions", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 4)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateVersion(ctx, spec, []artifact.FileContent{{Name: "sample.csv", Data: raw}})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		versions, err := store.ListVersions(ctx, "sample.csv")
		require.NoError(t, err)
		require.Len(t, versions, 5)
		for i, v := range versions {
			assert.Equal(t, i, v.Version)
		}
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := store.GetVersion(ctx, "sample.csv", "v99")
		assert.ErrorIs(t, err, artifact.ErrNotFound)

		_, err = store.GetVersionByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, artifact.ErrNotFound)

		_, err = store.GetVersionByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, artifact.ErrNotFound)
	})
}

var _ ArtifactRepository = (*PostgresArtifactStore)(nil)
