// Package api ships the OpenAPI description of the exam REST surface. The
// document is embedded so a deployed binary can serve and validate its own
// contract without touching the filesystem.
package api

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var spec []byte

// Spec returns the raw embedded OpenAPI document.
func Spec() []byte {
	out := make([]byte, len(spec))
	copy(out, spec)
	return out
}

// Document parses and validates the embedded spec. Servers call this once at
// startup so a malformed contract fails the boot instead of the first client.
func Document(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("embedded openapi spec is invalid: %w", err)
	}
	return doc, nil
}
