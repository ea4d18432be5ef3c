package template

import (
	"testing"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		ID:         "exec-1234",
		WorkflowID: "wf-1",
		EventName:  "job_completed",
		EntityType: models.EntityTypeJob,
		EntityID:   "job-1",
		Entity: map[string]any{
			"customer_name": "Dana",
			"total":         150.0,
		},
		StepResults: map[string]any{},
	}
}

func TestRenderWithContextEntityFields(t *testing.T) {
	out, err := RenderWithContext("Hi {{.entity.customer_name}}, your job is done.", testContext())
	require.NoError(t, err)
	assert.Equal(t, "Hi Dana, your job is done.", out)
}

func TestRenderWithContextExecutionFields(t *testing.T) {
	out, err := RenderWithContext("{{.event}}/{{.execution.workflow_id}}/{{.execution.entity_id}}", testContext())
	require.NoError(t, err)
	assert.Equal(t, "job_completed/wf-1/job-1", out)
}

func TestRenderMissingFieldIsEmpty(t *testing.T) {
	out, err := RenderWithContext("Hello {{.entity.ghost}}!", testContext())
	require.NoError(t, err)
	assert.Equal(t, "Hello !", out)
}

func TestRenderPlainText(t *testing.T) {
	out, err := RenderWithContext("no placeholders here", testContext())
	require.NoError(t, err)
	assert.Equal(t, "no placeholders here", out)
}

func TestRenderInvalidTemplate(t *testing.T) {
	_, err := RenderWithContext("{{.entity.customer_name", testContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}

func TestRenderNowFunc(t *testing.T) {
	out, err := Render("sent at {{now}}", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "sent at ")
	assert.NotContains(t, out, "{{")
}
