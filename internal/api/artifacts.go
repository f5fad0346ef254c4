package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"pricing-pipeline/internal/artifact"
	"pricing-pipeline/internal/services"
	"pricing-pipeline/pkg/models"
)

// MaxUploadBytes bounds the size of a publish request.
const MaxUploadBytes = 512 << 20

// Server holds the dependencies for the artifact API.
type Server struct {
	Artifacts services.Artifacts
}

// NewServer creates a new Server.
func NewServer(artifacts services.Artifacts) *Server {
	return &Server{Artifacts: artifacts}
}

// RegisterHandlers mounts the artifact routes on g (normally /api/v1).
func RegisterHandlers(g *echo.Group, s *Server) {
	g.POST("/artifacts", s.PublishArtifact)
	g.GET("/artifacts/:name", s.ListVersions)
	g.GET("/artifacts/:name/:alias", s.GetVersion)
	g.GET("/artifacts/:name/:alias/files/:file", s.DownloadFile)
	g.GET("/versions/:id", s.GetVersionByID)
}

func refFromPath(c echo.Context) (artifact.Ref, error) {
	ref := artifact.Ref{
		Name:  c.Param("name"),
		Alias: c.Param("alias"),
		File:  c.Param("file"),
	}
	// round-trip through the parser so path params get the same checks
	parsed, err := artifact.ParseRef(ref.String())
	if err != nil {
		return artifact.Ref{}, err
	}
	return parsed, nil
}

// ListVersions returns every version of an artifact
// (GET /api/v1/artifacts/:name)
func (s *Server) ListVersions(c echo.Context) error {
	versions, err := s.Artifacts.History(c.Request().Context(), c.Param("name"))
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, versions)
}

// GetVersion resolves an alias to a version
// (GET /api/v1/artifacts/:name/:alias)
func (s *Server) GetVersion(c echo.Context) error {
	ref, err := refFromPath(c)
	if err != nil {
		return writeStoreError(c, err)
	}
	v, err := s.Artifacts.Resolve(c.Request().Context(), ref)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// GetVersionByID returns a version by id
// (GET /api/v1/versions/:id)
func (s *Server) GetVersionByID(c echo.Context) error {
	v, err := s.Artifacts.Version(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// DownloadFile streams one file of a version
// (GET /api/v1/artifacts/:name/:alias/files/:file)
func (s *Server) DownloadFile(c echo.Context) error {
	ref, err := refFromPath(c)
	if err != nil {
		return writeStoreError(c, err)
	}
	f, data, err := s.Artifacts.Download(c.Request().Context(), ref)
	if err != nil {
		return writeStoreError(c, err)
	}
	c.Response().Header().Set("Digest", f.Digest)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", f.Name))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

// PublishArtifact creates a new version from a multipart request holding a
// "spec" JSON part and one or more "file" parts
// (POST /api/v1/artifacts)
func (s *Server) PublishArtifact(c echo.Context) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, MaxUploadBytes)

	var spec models.ArtifactSpec
	if err := json.Unmarshal([]byte(c.FormValue("spec")), &spec); err != nil {
		return writeError(c, http.StatusBadRequest, "Bad Request", "Invalid spec part: "+err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		return writeError(c, http.StatusBadRequest, "Bad Request", "Invalid multipart body: "+err.Error())
	}

	files := make([]artifact.FileContent, 0, len(form.File["file"]))
	for _, fh := range form.File["file"] {
		data, err := readPart(fh)
		if err != nil {
			return writeError(c, http.StatusBadRequest, "Bad Request", err.Error())
		}
		files = append(files, artifact.FileContent{Name: filepath.Base(fh.Filename), Data: data})
	}

	v, err := s.Artifacts.Publish(c.Request().Context(), spec, files)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open part %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", fh.Filename, err)
	}
	return data, nil
}
