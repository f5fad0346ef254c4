package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/internal/artifact/localstore"
	"pricing-pipeline/internal/logging"
	"pricing-pipeline/internal/services"
	"pricing-pipeline/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	backend, err := localstore.New(t.TempDir())
	require.NoError(t, err)
	svc := services.NewArtifactService(backend, logging.Discard())

	_, err = svc.Publish(context.Background(),
		models.ArtifactSpec{Name: "clean.csv", Type: "clean_sample", Inputs: []string{"sample.csv:v0"}},
		[]artifact.FileContent{{Name: "clean.csv", Data: []byte("price\n50\n")}})
	require.NoError(t, err)

	return NewServer(svc, "test")
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleDescribe(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleDescribe(context.Background(), callRequest(map[string]interface{}{"ref": "clean.csv"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var v models.ArtifactVersion
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &v))
	assert.Equal(t, "v0", v.Alias)
	assert.Equal(t, []string{"sample.csv:v0"}, v.Inputs)
}

func TestHandleDescribe_BadRef(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleDescribe(context.Background(), callRequest(map[string]interface{}{"ref": "clean.csv:prod"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleDescribe(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleListVersions(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleListVersions(context.Background(), callRequest(map[string]interface{}{"name": "clean.csv"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var versions []models.ArtifactVersion
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &versions))
	assert.Len(t, versions, 1)

	result, err = s.handleListVersions(context.Background(), callRequest(map[string]interface{}{"name": "nothing.csv"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
