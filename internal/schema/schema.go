// Package schema checks raw SLO documents against the OpenSLO JSON Schema
// before any model is built from them.
package schema

import (
	_ "embed"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed slo-spec.schema.json
var embedded []byte

type Validator struct {
	schema *gojsonschema.Schema
	source string
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(embedded))
	if err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}
	return &Validator{schema: compiled, source: "embedded"}, nil
}

// Load compiles the schema at path, or the embedded one when path is empty.
func Load(path string) (*Validator, error) {
	if path == "" {
		return New()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve schema %s: %w", path, err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(abs)))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", path, err)
	}
	return &Validator{schema: compiled, source: path}, nil
}

func (v *Validator) Source() string {
	return v.source
}

// Validate returns the sorted list of schema violations of doc. An error is
// only returned when doc cannot be checked at all.
func (v *Validator) Validate(doc any) ([]string, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate against %s schema: %w", v.source, err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	sort.Strings(errs)
	return errs, nil
}
