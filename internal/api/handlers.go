// Package api contains the HTTP handlers for the artifact store service
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"pricing-pipeline/internal/artifact"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains the unauthenticated service endpoints
type Handler struct {
	pinger  Pinger
	version string
}

// NewHandler creates a new Handler. pinger may be nil when the backend has
// nothing to check.
func NewHandler(pinger Pinger, version string) *Handler {
	return &Handler{pinger: pinger, version: version}
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth reports service health, 503 when the backend is unreachable
func (h *Handler) HandleHealth(c echo.Context) error {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Service:   "artifactd",
		Version:   h.version,
	}
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request().Context()); err != nil {
			status.Status = "unavailable"
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(c echo.Context, status int, title, detail string) error {
	problem := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	c.Response().WriteHeader(status)
	return json.NewEncoder(c.Response()).Encode(problem)
}

// writeStoreError maps artifact errors onto HTTP statuses
func writeStoreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		return writeError(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, artifact.ErrInvalidRef),
		errors.Is(err, artifact.ErrInvalidArtifact),
		errors.Is(err, artifact.ErrMultipleFiles),
		errors.Is(err, artifact.ErrNoFiles):
		return writeError(c, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
	}
}
