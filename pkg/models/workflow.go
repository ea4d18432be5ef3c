// Package models defines the core domain models for Fixlify automation workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, never dispatched
	WorkflowStatusActive WorkflowStatus = "active" // Eligible for dispatch
	WorkflowStatusPaused WorkflowStatus = "paused" // Temporarily disabled by the user
)

// TriggerKind distinguishes how a workflow is fired.
type TriggerKind string

const (
	TriggerKindEntityEvent TriggerKind = "entity_event" // Fired by business events (job created, payment received, ...)
	TriggerKindTimeBased   TriggerKind = "time_based"   // Fired on a recurring cron schedule
	TriggerKindDateBased   TriggerKind = "date_based"   // Fired on date milestones (anniversaries, due dates)
)

// Workflow represents a user-authored automation: a trigger plus a graph of
// condition and action steps. The execution path treats workflows as
// read-only; runs only produce log records, never definition changes.
type Workflow struct {
	ID          string         `json:"id"          validate:"required"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"      validate:"required,oneof=draft active paused"`
	TriggerKind TriggerKind    `json:"trigger_kind" validate:"required,oneof=entity_event time_based date_based"`
	EventName   string         `json:"event_name"  validate:"required_if=TriggerKind entity_event"`
	Schedule    string         `json:"schedule"    validate:"required_unless=TriggerKind entity_event"`
	Steps       []*StepNode    `json:"steps"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive reports whether the workflow is eligible for dispatch.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// TriggerStep returns the workflow's entry node, if any. A well-formed
// workflow has exactly one.
func (w *Workflow) TriggerStep() *StepNode {
	for _, step := range w.Steps {
		if step.Kind == StepKindTrigger {
			return step
		}
	}

	return nil
}

// StepByID looks up a step node by its identifier.
func (w *Workflow) StepByID(id string) (*StepNode, bool) {
	for _, step := range w.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}
