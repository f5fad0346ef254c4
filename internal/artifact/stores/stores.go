// Package stores builds the artifact store selected by configuration.
package stores

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/internal/artifact/httpstore"
	"pricing-pipeline/internal/artifact/localstore"
	"pricing-pipeline/internal/config"
	"pricing-pipeline/internal/repository"
)

// Backend is a storage backend together with its health check and cleanup.
type Backend struct {
	artifact.Backend
	ping  func(ctx context.Context) error
	Close func()
}

// Ping checks the backend connection. Backends without one are always up.
func (b *Backend) Ping(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// OpenBackend opens the local or postgres backend named by cfg.Store.Backend.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendLocal:
		store, err := localstore.New(cfg.Store.LocalDir)
		if err != nil {
			return nil, err
		}
		return &Backend{Backend: store, Close: func() {}}, nil

	case config.BackendPostgres:
		pool, err := repository.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		var store repository.ArtifactRepository = repository.NewPostgresArtifactStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Backend{Backend: store, ping: store.Ping, Close: pool.Close}, nil

	default:
		return nil, fmt.Errorf("store backend %q cannot be served directly", cfg.Store.Backend)
	}
}

// Open returns the artifact.Store a pipeline step should use, and a function
// releasing its resources.
func Open(ctx context.Context, cfg *config.Config) (artifact.Store, func(), error) {
	if cfg.Store.Backend == config.BackendHTTP {
		opts := []httpstore.Option{httpstore.WithPollInterval(cfg.Store.PollInterval)}
		if cfg.Store.OAuth.TokenURL != "" {
			opts = append(opts, httpstore.WithClientCredentials(&clientcredentials.Config{
				ClientID:     cfg.Store.OAuth.ClientID,
				ClientSecret: cfg.Store.OAuth.ClientSecret,
				TokenURL:     cfg.Store.OAuth.TokenURL,
				Scopes:       cfg.Store.OAuth.Scopes,
			}))
		}
		return httpstore.New(cfg.Store.URL, cfg.Store.CacheDir, opts...), func() {}, nil
	}

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return artifact.NewBackendStore(backend, cfg.Store.CacheDir), backend.Close, nil
}
