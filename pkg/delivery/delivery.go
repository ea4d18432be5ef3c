// Package delivery defines the narrow interfaces to the external
// collaborators that actions delegate to. The engine only needs
// success/failure; wire formats belong to the implementations.
package delivery

import (
	"context"
	"time"
)

// Messenger sends an SMS to a single recipient.
type Messenger interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Mailer sends an email to a single recipient.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Task is the specification of a follow-up task created by an automation.
type Task struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	EntityType  string     `json:"entity_type,omitempty"`
	EntityID    string     `json:"entity_id,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// TaskCreator creates a task and returns its identifier.
type TaskCreator interface {
	CreateTask(ctx context.Context, task Task) (string, error)
}

// WebhookCaller posts a JSON payload to an external URL.
type WebhookCaller interface {
	CallWebhook(ctx context.Context, url string, payload map[string]any) error
}
