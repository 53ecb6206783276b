package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const maxReportedErrors = 3

// Validator checks tool arguments against JSON schemas, compiling each
// distinct schema once.
type Validator struct {
	cache sync.Map // schema JSON -> *gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate reports whether args (a JSON document) satisfies schemaData.
// schemaData is anything that marshals to a JSON schema.
func (v *Validator) Validate(schemaData any, args []byte) error {
	compiled, err := v.compile(schemaData)
	if err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return fmt.Errorf("validation execution failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}

	return fmt.Errorf("invalid arguments: %s", joinErrors(errs))
}

func (v *Validator) compile(schemaData any) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(schemaData)
	if err != nil {
		return nil, err
	}
	key := string(raw)

	if cached, ok := v.cache.Load(key); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}

	v.cache.Store(key, compiled)

	return compiled, nil
}

func joinErrors(errs []string) string {
	var suffix string
	if len(errs) > maxReportedErrors {
		suffix = fmt.Sprintf(" (and %d more)", len(errs)-maxReportedErrors)
		errs = errs[:maxReportedErrors]
	}

	return strings.Join(errs, "; ") + suffix
}
