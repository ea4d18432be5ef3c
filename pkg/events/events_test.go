package events

import (
	"testing"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTriggerEvent(t *testing.T) {
	event := NewTriggerEvent(JobCreated, models.EntityTypeJob, "job-1", map[string]any{"id": "job-1"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, JobCreated, event.Name)
	assert.Equal(t, models.EntityTypeJob, event.EntityType)
	assert.Equal(t, "job-1", event.EntityID)
	assert.False(t, event.OccurredAt.IsZero())

	require.NoError(t, event.Validate())
}

func TestTriggerEventValidate(t *testing.T) {
	tests := []struct {
		name     string
		event    TriggerEvent
		expected error
	}{
		{
			name:     "missing name",
			event:    TriggerEvent{EntityType: models.EntityTypeJob, EntityID: "job-1"},
			expected: ErrMissingEventName,
		},
		{
			name:     "missing entity type",
			event:    TriggerEvent{Name: JobCreated, EntityID: "job-1"},
			expected: ErrMissingEntityType,
		},
		{
			name:     "missing entity id",
			event:    TriggerEvent{Name: JobCreated, EntityType: models.EntityTypeJob},
			expected: ErrMissingEntityID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.event.Validate(), tt.expected)
		})
	}
}

func TestLifecycleEventTypes(t *testing.T) {
	dispatch := AutomationDispatchRequested{BaseEvent: NewBaseEvent(AutomationDispatchRequestedEvent, "wf-1")}
	assert.Equal(t, AutomationDispatchRequestedEvent, dispatch.GetType())
	assert.Equal(t, "wf-1", dispatch.WorkflowID)
	assert.NotEmpty(t, dispatch.ID)

	completed := AutomationCompleted{BaseEvent: NewBaseEvent(AutomationCompletedEvent, "wf-1")}
	assert.Equal(t, AutomationCompletedEvent, completed.GetType())

	failed := AutomationFailed{BaseEvent: NewBaseEvent(AutomationFailedEvent, "wf-1")}
	assert.Equal(t, AutomationFailedEvent, failed.GetType())
}
