package httpstore

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pricing-pipeline/internal/artifact"
)

// StatusError is a non-success response from the service.
type StatusError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("artifact store: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("artifact store: %d %s", e.StatusCode, e.Title)
}

// Unwrap maps statuses back onto the artifact sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return artifact.ErrNotFound
	case http.StatusBadRequest:
		return artifact.ErrInvalidArtifact
	}
	return nil
}

func decodeProblem(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &problem) == nil && problem.Title != "" {
		statusErr.Title = problem.Title
		statusErr.Detail = problem.Detail
	} else if len(body) > 0 {
		statusErr.Detail = string(body)
	}
	return statusErr
}
