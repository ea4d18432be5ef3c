package file

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// workflowSchema is the structural contract for workflow definition files.
// Semantic validation (status values, step wiring) happens in the models
// layer; this catches hand-edited files before they reach it.
const workflowSchema = `{
  "type": "object",
  "required": ["id", "name", "status", "trigger_kind"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 3},
    "description": {"type": "string"},
    "status": {"enum": ["draft", "active", "paused"]},
    "trigger_kind": {"enum": ["entity_event", "time_based", "date_based"]},
    "event_name": {"type": "string"},
    "schedule": {"type": "string"},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "kind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "kind": {"enum": ["trigger", "condition", "action"]},
          "event_name": {"type": "string"},
          "condition": {
            "type": "object",
            "required": ["field", "operator"],
            "properties": {
              "field": {"type": "string", "minLength": 1},
              "operator": {
                "enum": [
                  "equals", "not_equals", "contains",
                  "is_empty", "is_not_empty",
                  "greater_than", "less_than"
                ]
              }
            }
          },
          "on_yes": {"type": "string"},
          "on_no": {"type": "string"},
          "action_type": {"type": "string"},
          "config": {"type": "object"},
          "next": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(workflowSchema)

// validateWorkflowJSON checks raw workflow JSON against the schema.
func validateWorkflowJSON(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		return fmt.Errorf("workflow definition does not match schema: %v", result.Errors())
	}

	return nil
}
