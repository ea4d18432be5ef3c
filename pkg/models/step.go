package models

// StepKind is the variant tag of a StepNode.
type StepKind string

const (
	StepKindTrigger   StepKind = "trigger"   // Entry node, carries the event selector
	StepKindCondition StepKind = "condition" // Branches on a field comparison
	StepKindAction    StepKind = "action"    // Performs a side effect
)

// Built-in action types.
const (
	ActionTypeSendSMS     = "send_sms"
	ActionTypeSendEmail   = "send_email"
	ActionTypeCreateTask  = "create_task"
	ActionTypeCallWebhook = "call_webhook"
	ActionTypeDelay       = "delay"
	ActionTypeNotifyTeam  = "notify_team"
)

// StepNode is a single node in a workflow graph, polymorphic over Kind.
// Trigger and action nodes have at most one successor (Next); condition
// nodes have exactly two (OnYes, OnNo). A nil successor ends the traversal
// on that branch.
type StepNode struct {
	ID   string   `json:"id"   validate:"required"`
	Kind StepKind `json:"kind" validate:"required,oneof=trigger condition action"`
	Name string   `json:"name"`

	// Trigger fields.
	EventName string `json:"event_name,omitempty"`

	// Condition fields.
	Condition *Condition `json:"condition,omitempty"`
	OnYes     *string    `json:"on_yes,omitempty"`
	OnNo      *string    `json:"on_no,omitempty"`

	// Action fields.
	ActionType string         `json:"action_type,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
	Next       *string        `json:"next,omitempty"`
}

func (s *StepNode) IsTrigger() bool {
	return s.Kind == StepKindTrigger
}

func (s *StepNode) IsCondition() bool {
	return s.Kind == StepKindCondition
}

func (s *StepNode) IsAction() bool {
	return s.Kind == StepKindAction
}
