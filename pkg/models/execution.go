package models

import "time"

// ExecutionStatus is the terminal state of a single workflow run.
type ExecutionStatus string

const (
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionContext carries the state of one workflow traversal.
type ExecutionContext struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	EventName   string         `json:"event_name"`
	EntityType  EntityType     `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Entity      map[string]any `json:"entity,omitempty"`
	StepResults map[string]any `json:"step_results,omitempty"`
}

// ExecutionLog records the outcome of one workflow run for the execution
// history surface. Failed automations are observable here, never through
// user-facing errors.
type ExecutionLog struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflow_id"`
	EventName     string          `json:"event_name"`
	EntityType    EntityType      `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Status        ExecutionStatus `json:"status"`
	StepsRun      int             `json:"steps_run"`
	ActionsFailed int             `json:"actions_failed"`
	Error         string          `json:"error,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}
