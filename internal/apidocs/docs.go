// Package apidocs embeds the OpenAPI document for the HTTP API and registers
// it with swag so Swagger UI can serve it as doc.json.
package apidocs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

// OpenAPIYAML is the API description served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPIYAML []byte

var (
	registerOnce sync.Once
	registerErr  error
)

// JSON returns the OpenAPI document converted to JSON.
func JSON() ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(OpenAPIYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}
	return json.Marshal(normalize(doc))
}

// Register installs the document as the default swag instance. It is safe to
// call more than once.
func Register() error {
	registerOnce.Do(func() {
		b, err := JSON()
		if err != nil {
			registerErr = err
			return
		}
		swag.Register(swag.Name, &swag.Spec{
			InfoInstanceName: swag.Name,
			SwaggerTemplate:  string(b),
			LeftDelim:        "{{",
			RightDelim:       "}}",
		})
	})
	return registerErr
}

// normalize turns map[any]any nodes, which encoding/json rejects, into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
