package catalog

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// entrySchema is the JSON Schema every catalog entry must satisfy. It
// enforces structure only; severity is a free string so authored files
// with house labels still load.
const entrySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["keywords", "response", "severity", "category"],
  "properties": {
    "keywords": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "response": {"type": "string", "minLength": 1},
    "severity": {"type": "string"},
    "category": {"type": "string", "minLength": 1},
    "questions": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

var entrySchemaLoader = gojsonschema.NewBytesLoader([]byte(entrySchema))

// ValidationError describes one rejected catalog entry. Index is the
// entry's position in the source file, counted before any entries were
// skipped.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("entry %d: %s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("entry %d: %s", e.Index, e.Message)
}

// validateEntry checks one raw entry against the schema. It returns the
// first schema violation, or ok=true when the entry is well formed.
func validateEntry(raw []byte) (ValidationError, bool) {
	result, err := gojsonschema.Validate(entrySchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return ValidationError{Message: err.Error()}, false
	}
	if result.Valid() {
		return ValidationError{}, true
	}
	desc := result.Errors()[0]
	return ValidationError{Field: desc.Field(), Message: desc.Description()}, false
}
