package classify

import (
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/workflow.json
var schemaFS embed.FS

// ErrSchemaInvalid is returned when a workflow schema cannot be compiled.
var ErrSchemaInvalid = errors.New("invalid workflow schema")

// Validator decides whether a parsed workflow document conforms to the
// workflow grammar. Implementations must be pure.
type Validator interface {
	Validate(doc any) bool
}

// SchemaValidator validates documents against a compiled JSON Schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

// NewSchemaValidator compiles a JSON Schema document.
func NewSchemaValidator(schemaJSON []byte) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// LoadSchemaValidator compiles the schema stored at path. An empty path
// selects the embedded baseline schema.
func LoadSchemaValidator(path string) (*SchemaValidator, error) {
	if path == "" {
		return DefaultSchemaValidator()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrSchemaInvalid, path, err)
	}
	return NewSchemaValidator(data)
}

// DefaultSchemaValidator returns a validator for the embedded baseline schema
// (trigger and jobs present, every job runs somewhere or calls a reusable
// workflow).
func DefaultSchemaValidator() (*SchemaValidator, error) {
	data, err := schemaFS.ReadFile("schema/workflow.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}
	return NewSchemaValidator(data)
}

// Validate reports whether doc conforms to the schema. Documents that cannot
// be represented as JSON are invalid.
func (v *SchemaValidator) Validate(doc any) bool {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return false
	}
	return result.Valid()
}
