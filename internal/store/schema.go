package store

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// artifactSchema describes the durable artifact layout. An artifact that
// fails this check is treated the same as a missing one: the store starts
// empty instead of loading partially-corrupt state.
const artifactSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["datasets"],
  "properties": {
    "datasets": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "created_at", "modified_at", "source", "metadata", "current", "versions"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "created_at": {"type": "string"},
          "modified_at": {"type": "string"},
          "source": {"type": "string"},
          "metadata": {
            "type": "object",
            "additionalProperties": {"type": "string"}
          },
          "current": {"$ref": "#/definitions/snapshot"},
          "versions": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["timestamp", "snapshot", "comment"],
              "properties": {
                "timestamp": {"type": "string"},
                "snapshot": {"$ref": "#/definitions/snapshot"},
                "comment": {"type": "string"}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "snapshot": {
      "type": "object",
      "properties": {
        "columns": {"type": ["array", "null"], "items": {"type": "string"}},
        "rows": {
          "type": ["array", "null"],
          "items": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// validateArtifact checks raw artifact bytes against the schema.
func validateArtifact(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(artifactSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("artifact does not match schema: %s", errs[0].String())
		}
		return fmt.Errorf("artifact does not match schema")
	}
	return nil
}
