package auth

const (
	ScopeArtifactsRead  = "artifacts:read"
	ScopeArtifactsWrite = "artifacts:write"
)

// AllScopes defines the full set of scopes a pipeline step requests
var AllScopes = []string{
	ScopeArtifactsRead,
	ScopeArtifactsWrite,
}
