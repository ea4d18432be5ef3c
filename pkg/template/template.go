// Package template renders message bodies and payload fields against the
// execution context, so workflows can reference entity fields in SMS and
// email text.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/fixlify/automation-engine/pkg/models"
)

// RenderWithContext renders the template with the entity snapshot and
// execution details exposed as .entity, .event and .execution.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (string, error) {
	data := map[string]any{
		"entity":       executionCtx.Entity,
		"event":        executionCtx.EventName,
		"step_results": executionCtx.StepResults,
		"execution": map[string]any{
			"id":          executionCtx.ID,
			"workflow_id": executionCtx.WorkflowID,
			"entity_type": executionCtx.EntityType,
			"entity_id":   executionCtx.EntityID,
		},
	}

	return Render(input, data)
}

func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("message").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	// text/template renders missing map keys as "<no value>"; treat them as
	// empty the same way condition evaluation treats missing fields.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}
