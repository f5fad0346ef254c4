// Package httpstore is an artifact.Store client for the artifactd service.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/pkg/models"
)

// Client talks to artifactd over HTTP. Resolved files are cached under
// cacheDir.
type Client struct {
	baseURL      string
	cacheDir     string
	http         *http.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClientCredentials authenticates every request with a bearer token
// obtained through the OAuth2 client-credentials grant.
func WithClientCredentials(cfg *clientcredentials.Config) Option {
	return func(c *Client) {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
		c.http = cfg.Client(ctx)
	}
}

// WithPollInterval sets how often Wait re-checks a version.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New creates a Client for the service at baseURL.
func New(baseURL, cacheDir string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		cacheDir:     cacheDir,
		http:         &http.Client{Timeout: 5 * time.Minute},
		pollInterval: artifact.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve downloads the referenced file into the cache and returns its path.
func (c *Client) Resolve(ctx context.Context, ref artifact.Ref) (string, error) {
	var v models.ArtifactVersion
	if err := c.getJSON(ctx, "/api/v1/artifacts/"+url.PathEscape(ref.Name)+"/"+url.PathEscape(ref.Alias), &v); err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	f, err := artifact.SelectFile(&v, ref.File)
	if err != nil {
		return "", err
	}

	path := artifact.CachePath(c.cacheDir, &v, f.Name)
	if artifact.Cached(path, f) {
		return path, nil
	}

	// download the pinned version so a concurrent publish cannot swap content
	data, err := c.get(ctx, "/api/v1/artifacts/"+url.PathEscape(v.Name)+"/"+url.PathEscape(v.Alias)+"/files/"+url.PathEscape(f.Name))
	if err != nil {
		return "", fmt.Errorf("failed to download %s/%s: %w", v.Ref(), f.Name, err)
	}
	if artifact.FileDigest(data) != f.Digest {
		return "", fmt.Errorf("%s/%s: %w", v.Ref(), f.Name, artifact.ErrDigestMismatch)
	}
	if err := artifact.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// Publish uploads the artifact as a multipart request.
func (c *Client) Publish(ctx context.Context, a *artifact.Artifact) (*models.ArtifactVersion, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	files, err := a.ReadFiles()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	spec, err := json.Marshal(a.Spec())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}
	if err := mw.WriteField("spec", string(spec)); err != nil {
		return nil, err
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("file", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/artifacts", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var v models.ArtifactVersion
	if err := c.do(req, http.StatusCreated, &v); err != nil {
		return nil, fmt.Errorf("failed to publish %s: %w", a.Name, err)
	}
	return &v, nil
}

// Wait polls the service until the version is committed.
func (c *Client) Wait(ctx context.Context, v *models.ArtifactVersion) error {
	return artifact.PollCommitted(ctx, v, c.pollInterval, c.version)
}

func (c *Client) version(ctx context.Context, id string) (*models.ArtifactVersion, error) {
	var v models.ArtifactVersion
	if err := c.getJSON(ctx, "/api/v1/versions/"+url.PathEscape(id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, http.StatusOK, out)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeProblem(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeProblem(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
