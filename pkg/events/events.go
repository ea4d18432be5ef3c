// Package events defines trigger events and workflow lifecycle notifications.
package events

import (
	"errors"
	"time"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries automation lifecycle events between the dispatcher and the
// runner.
const Topic = "fixlify.automations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	AutomationDispatchRequestedEvent EventType = "automation.dispatch.requested"
	AutomationCompletedEvent         EventType = "automation.completed"
	AutomationFailedEvent            EventType = "automation.failed"
)

// Business event names recognized by the trigger dispatcher.
const (
	JobCreated       = "job_created"
	JobStatusChanged = "job_status_changed"
	JobScheduled     = "job_scheduled"
	JobCompleted     = "job_completed"
	EstimateSent     = "estimate_sent"
	EstimateApproved = "estimate_approved"
	InvoiceCreated   = "invoice_created"
	PaymentReceived  = "payment_received"
	MissedCall       = "missed_call"
	CustomerInquiry  = "customer_inquiry"
)

// ScheduleTick is the synthetic event name for time-based and date-based
// workflow dispatches. It is not a business event and never matches
// entity_event workflows.
const ScheduleTick = "schedule_tick"

var (
	ErrMissingEventName  = errors.New("trigger event name is required")
	ErrMissingEntityType = errors.New("trigger event entity type is required")
	ErrMissingEntityID   = errors.New("trigger event entity id is required")
)

// TriggerEvent is the ephemeral value handed to the dispatcher when a
// business event occurs. The caller supplies a complete-enough entity
// snapshot; the core never re-fetches data.
type TriggerEvent struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	EntityType models.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Entity     map[string]any    `json:"entity,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewTriggerEvent builds a trigger event with a fresh ID and timestamp.
func NewTriggerEvent(name string, entityType models.EntityType, entityID string, entity map[string]any) TriggerEvent {
	return TriggerEvent{
		ID:         uuid.New().String(),
		Name:       name,
		EntityType: entityType,
		EntityID:   entityID,
		Entity:     entity,
		OccurredAt: time.Now().UTC(),
	}
}

func (e TriggerEvent) Validate() error {
	if e.Name == "" {
		return ErrMissingEventName
	}

	if e.EntityType == "" {
		return ErrMissingEntityType
	}

	if e.EntityID == "" {
		return ErrMissingEntityID
	}

	return nil
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// AutomationDispatchRequested asks the runner to execute one workflow for
// one trigger event. It is published by the dispatcher after the execution
// guard approved the run.
type AutomationDispatchRequested struct {
	BaseEvent

	Trigger TriggerEvent `json:"trigger"`
}

func (a AutomationDispatchRequested) GetType() EventType {
	return AutomationDispatchRequestedEvent
}

type AutomationCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	StepsRun    int           `json:"steps_run"`
	Duration    time.Duration `json:"duration"`
}

func (a AutomationCompleted) GetType() EventType {
	return AutomationCompletedEvent
}

type AutomationFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (a AutomationFailed) GetType() EventType {
	return AutomationFailedEvent
}
