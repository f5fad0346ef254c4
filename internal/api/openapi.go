package api

import (
	_ "embed"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed openapi.yaml
var openAPISpec string

// SpecHandler serves the OpenAPI YAML spec with {serverURL} replaced by the
// scheme and host the request came in on.
func SpecHandler(c echo.Context) error {
	spec := strings.ReplaceAll(openAPISpec, "{serverURL}", c.Scheme()+"://"+c.Request().Host)
	return c.Blob(http.StatusOK, "application/yaml", []byte(spec))
}
