package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/internal/artifact/localstore"
)

const rawListings = `id,name,price,last_review
1,Loft,50,2019-05-21
2,Penthouse,9999,2019-06-01
3,Studio,50,not-a-date
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logs := &bytes.Buffer{}
	cmd := newRootCmd(logs)
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return logs.String(), err
}

func TestRootCmd_RequiresAllFlags(t *testing.T) {
	_, err := execute(t, "--input_artifact", "sample.csv:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s)")
	assert.Contains(t, err.Error(), "max_price")
	assert.NotContains(t, err.Error(), `"input_artifact"`)
}

func TestRootCmd_RejectsBadPrice(t *testing.T) {
	_, err := execute(t,
		"--input_artifact", "sample.csv:latest",
		"--output_artifact", "clean_sample.csv",
		"--output_type", "clean_sample",
		"--output_description", "cleaned",
		"--min_price", "ten",
		"--max_price", "350",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_price")
}

func TestRootCmd_LocalStore(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PIPELINE_STORE_BACKEND", "local")
	t.Setenv("PIPELINE_STORE_LOCAL_DIR", root)
	t.Setenv("PIPELINE_STORE_CACHE_DIR", t.TempDir())
	t.Setenv("PIPELINE_LOG_FORMAT", "json")

	backend, err := localstore.New(root)
	require.NoError(t, err)
	store := artifact.NewBackendStore(backend, t.TempDir())

	rawPath := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, os.WriteFile(rawPath, []byte(rawListings), 0o644))
	raw := artifact.New("sample.csv", "raw_data", "Raw listings")
	raw.AddFile(rawPath)
	v, err := store.Publish(context.Background(), raw)
	require.NoError(t, err)
	require.NoError(t, store.Wait(context.Background(), v))

	logs, err := execute(t,
		"--input_artifact", "sample.csv:latest",
		"--output_artifact", "clean_sample.csv",
		"--output_type", "clean_sample",
		"--output_description", "Data with outliers removed",
		"--min_price", "10",
		"--max_price", "350",
	)
	require.NoError(t, err)
	assert.Contains(t, logs, `"job_type":"basic_cleaning"`)

	path, err := store.Resolve(context.Background(), artifact.Ref{Name: "clean_sample.csv", Alias: artifact.LatestAlias})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,name,price,last_review\n1,Loft,50,2019-05-21\n3,Studio,50,\n", string(data))
}

func TestRootCmd_MissingInput(t *testing.T) {
	t.Setenv("PIPELINE_STORE_BACKEND", "local")
	t.Setenv("PIPELINE_STORE_LOCAL_DIR", t.TempDir())
	t.Setenv("PIPELINE_STORE_CACHE_DIR", t.TempDir())

	_, err := execute(t,
		"--input_artifact", "missing.csv",
		"--output_artifact", "clean_sample.csv",
		"--output_type", "clean_sample",
		"--output_description", "cleaned",
		"--min_price", "10",
		"--max_price", "350",
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}
