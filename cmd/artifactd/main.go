// Command artifactd serves versioned pipeline artifacts over HTTP and MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"pricing-pipeline/internal/api"
	"pricing-pipeline/internal/artifact/stores"
	"pricing-pipeline/internal/auth"
	"pricing-pipeline/internal/config"
	"pricing-pipeline/internal/logging"
	"pricing-pipeline/internal/mcp"
	"pricing-pipeline/internal/services"
	"pricing-pipeline/internal/tls"
)

var version = "dev"

func main() {
	var configFile string
	cmd := &cobra.Command{
		Use:          "artifactd",
		Short:        "Versioned artifact store for the pricing pipeline",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Path to a config file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	logger.Info("Configuration loaded",
		"store_backend", cfg.Store.Backend,
		"auth_enabled", cfg.Auth.Enabled,
		"config_file", cfg.ConfigFile,
	)

	if cfg.Store.Backend == config.BackendHTTP {
		// artifactd is the http backend; serve from local disk instead.
		cfg.Store.Backend = config.BackendLocal
	}
	backend, err := stores.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s backend: %w", cfg.Store.Backend, err)
	}
	defer backend.Close()
	logger.Info("Storage backend ready", "backend", cfg.Store.Backend)

	artifacts := services.NewArtifactService(backend, logger)

	authz, err := auth.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}

	e := newEcho(artifacts, backend, authz)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      e,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.Server.TLS.Enable {
		created, err := tls.EnsureCert(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, cfg.Server.TLS.Hostnames)
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
		if created {
			logger.Warn("Generated self-signed certificate", "cert_file", cfg.Server.TLS.CertFile)
		}
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", cfg.Server.Addr, "tls", cfg.Server.TLS.Enable)
		if cfg.Server.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}
		logger.Info("Server stopped gracefully")
		return nil
	}
}

// newEcho wires the routes of the service.
func newEcho(artifacts services.Artifacts, pinger api.Pinger, authz *auth.Auth) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("artifactd"))

	e.GET("/health", api.NewHandler(pinger, version).HandleHealth)
	e.GET("/openapi.yaml", api.SpecHandler)

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.RegisterHandlers(apiGroup, api.NewServer(artifacts))

	mcpServer := mcp.NewServer(artifacts, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	mcpHandler := authz.RequireScope(auth.ScopeArtifactsRead)(mcpHandlers)
	e.Any("/mcp", echo.WrapHandler(mcpHandler))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandler))

	return e
}
