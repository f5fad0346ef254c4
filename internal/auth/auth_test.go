package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-pipeline/internal/config"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

const testIssuer = "https://test-issuer.com"

func fakeToken(t *testing.T, extra map[string]interface{}) string {
	t.Helper()
	claims := map[string]interface{}{
		"iss": testIssuer,
		"aud": "artifactd",
		"sub": "basic-cleaning",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Add(-1 * time.Minute).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	headerBytes, err := json.Marshal(map[string]interface{}{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(headerBytes) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func newTestAuth() *Auth {
	verifier := oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{
		ClientID: "artifactd",
	})
	return &Auth{apiVerifier: verifier, logger: &NoOpLogger{}}
}

func serve(a *Auth, req *http.Request) (*httptest.ResponseRecorder, *Principal) {
	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			seen = &p
		}
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	a.RequireAuth(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuth_BearerToken_ExtractsPrincipal(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/artifacts/sample.csv/latest", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, map[string]interface{}{"scope": "artifacts:read"}))

	rec, principal := serve(newTestAuth(), req)

	if rec.Code != http.StatusOK {
		t.Logf("Response Body: %s", rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "basic-cleaning", principal.Subject)
	assert.Equal(t, []string{"artifacts:read"}, principal.Scopes)
}

func TestRequireAuth_WriteNeedsWriteScope(t *testing.T) {
	a := newTestAuth()

	req := httptest.NewRequest("POST", "/api/v1/artifacts", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, map[string]interface{}{"scope": "artifacts:read"}))
	rec, _ := serve(a, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Okta style "scp" array claim
	req = httptest.NewRequest("POST", "/api/v1/artifacts", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, map[string]interface{}{"scp": []string{"artifacts:read", "artifacts:write"}}))
	rec, _ = serve(a, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	rec, principal := serve(newTestAuth(), httptest.NewRequest("GET", "/api/v1/versions/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	assert.Nil(t, principal)
}

func TestRequireAuth_WrongAudience(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/versions/x", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, map[string]interface{}{"aud": "someone-else", "scope": "artifacts:read"}))

	rec, _ := serve(newTestAuth(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BypassMode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Enabled = false
	a, err := New(context.Background(), cfg, &NoOpLogger{})
	require.NoError(t, err)

	rec, principal := serve(a, httptest.NewRequest("POST", "/api/v1/artifacts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "local", principal.Subject)
}

func TestRequireScope_PostWithReadScope(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp/message", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, map[string]interface{}{"scope": "artifacts:read"}))

	rec := httptest.NewRecorder()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	newTestAuth().RequireScope(ScopeArtifactsRead)(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
