// Package web provides the HTTP surface: business-event ingestion, workflow
// management and execution-log queries.
package web

import "github.com/fixlify/automation-engine/pkg/models"

// IngestEventRequest is the request body for POST /v1/events/:name. The
// caller supplies the entity snapshot; the engine never re-fetches data.
type IngestEventRequest struct {
	EntityType string         `json:"entity_type" validate:"required,oneof=job client estimate invoice call"`
	EntityID   string         `json:"entity_id"   validate:"required"`
	Entity     map[string]any `json:"entity"`

	// Status-change fields, used only for job_status_changed.
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
}

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string             `json:"name"         validate:"required,min=3"`
	Description string             `json:"description"`
	Status      string             `json:"status"       validate:"omitempty,oneof=draft active paused"`
	TriggerKind string             `json:"trigger_kind" validate:"required,oneof=entity_event time_based date_based"`
	EventName   string             `json:"event_name"   validate:"required_if=TriggerKind entity_event"`
	Schedule    string             `json:"schedule"     validate:"required_unless=TriggerKind entity_event"`
	Steps       []*models.StepNode `json:"steps"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest supports partial updates. Steps replace wholesale
// when present.
type UpdateWorkflowRequest struct {
	Name        *string            `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string            `json:"description,omitempty"`
	Status      *string            `json:"status,omitempty"      validate:"omitempty,oneof=draft active paused"`
	EventName   *string            `json:"event_name,omitempty"`
	Schedule    *string            `json:"schedule,omitempty"`
	Steps       []*models.StepNode `json:"steps,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"`
}
