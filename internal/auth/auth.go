package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/coreos/go-oidc"

	"pricing-pipeline/internal/config"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type contextKey struct{}

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Scopes  []string
}

// PrincipalFromContext returns the caller stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// Auth verifies OpenID Connect bearer tokens issued to pipeline steps.
type Auth struct {
	apiVerifier *oidc.IDTokenVerifier
	logger      Logger
	bypass      bool
}

// New creates a new Auth object using values from the application
// configuration. With auth disabled every request passes as a local
// principal holding all scopes.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	if !cfg.Auth.Enabled {
		logger.Info("auth disabled, API is open")
		return &Auth{logger: logger, bypass: true}, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	// Access tokens from client-credentials grants often carry an API audience
	// instead of a client id, so only check it when one is configured.
	apiVerifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.Auth.Audience,
		SkipClientIDCheck: cfg.Auth.Audience == "",
	})

	return &Auth{
		apiVerifier: apiVerifier,
		logger:      logger,
	}, nil
}

// RequireAuth is middleware that ensures a valid bearer token is present.
// Safe methods need the read scope; everything else needs the write scope.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return a.guard(next, func(r *http.Request) string { return requiredScope(r.Method) })
}

// RequireScope is like RequireAuth but demands the same scope for every
// method. The MCP endpoints only read, yet tool calls arrive as POSTs.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.guard(next, func(*http.Request) string { return scope })
	}
}

func (a *Auth) guard(next http.Handler, scopeFor func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var principal Principal

		if a.bypass {
			principal = Principal{Subject: "local", Scopes: AllScopes}
		} else {
			authHeader := r.Header.Get("Authorization")
			rawToken, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || rawToken == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="artifactd"`)
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			token, err := a.apiVerifier.Verify(r.Context(), rawToken)
			if err != nil {
				if a.logger != nil {
					a.logger.Debug("rejected token", "error", err)
				}
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			var claims struct {
				Scope string   `json:"scope"`
				Scp   []string `json:"scp"`
			}
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "failed to parse token claims", http.StatusUnauthorized)
				return
			}
			principal = Principal{
				Subject: token.Subject,
				Scopes:  append(strings.Fields(claims.Scope), claims.Scp...),
			}
		}

		if !slices.Contains(principal.Scopes, scopeFor(r)) {
			http.Error(w, "insufficient scope", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requiredScope(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ScopeArtifactsRead
	default:
		return ScopeArtifactsWrite
	}
}
