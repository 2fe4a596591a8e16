package http

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/swaggo/swag"
)

// staticDoc serves a pre-rendered OpenAPI document through the swag registry.
type staticDoc string

func (d staticDoc) ReadDoc() string { return string(d) }

// RegisterSwagger converts the YAML document at docPath to JSON and serves
// it as /swagger/doc.json next to the Swagger UI. It must be called once per
// process.
func RegisterSwagger(e *echo.Echo, docPath string) error {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("load swagger document: %w", err)
	}
	doc, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("convert swagger document: %w", err)
	}

	swag.Register(swag.Name, staticDoc(doc))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	return nil
}
