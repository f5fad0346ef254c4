package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/internal/services"
)

// Server exposes the artifact catalogue as read-only MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	artifacts services.Artifacts
}

func NewServer(artifacts services.Artifacts, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Artifact Store",
			version,
			server.WithToolCapabilities(true),
		),
		artifacts: artifacts,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_artifact_versions",
			mcp.WithDescription("List every version of an artifact, oldest first"),
			mcp.WithString("name", mcp.Required(), mcp.Description("The artifact name, e.g. clean_sample.csv")),
		),
		s.handleListVersions,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"describe_artifact",
			mcp.WithDescription("Describe the artifact version a reference resolves to, including lineage and metadata"),
			mcp.WithString("ref", mcp.Required(), mcp.Description("Artifact reference in the form name[:alias]")),
		),
		s.handleDescribe,
	)
}

func stringArg(request mcp.CallToolRequest, key string) (string, bool) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", false
	}
	value, ok := args[key].(string)
	return value, ok && value != ""
}

func (s *Server) handleListVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, ok := stringArg(request, "name")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}

	versions, err := s.artifacts.History(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list versions: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(versions)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := stringArg(request, "ref")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: ref"), nil
	}

	ref, err := artifact.ParseRef(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	v, err := s.artifacts.Resolve(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve %s: %v", ref, err)), nil
	}

	jsonBytes, _ := json.Marshal(v)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
