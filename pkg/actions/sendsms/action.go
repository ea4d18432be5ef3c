// Package sendsms implements the send_sms action.
package sendsms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/delivery"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/protocol"
	"github.com/fixlify/automation-engine/pkg/template"
)

var ErrMissingRecipient = errors.New("send_sms: no recipient configured and entity has no phone")

type ActionFactory struct {
	messenger delivery.Messenger
}

func NewActionFactory(messenger delivery.Messenger) *ActionFactory {
	return &ActionFactory{messenger: messenger}
}

func (*ActionFactory) ID() string {
	return models.ActionTypeSendSMS
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	to, _ := config["to"].(string)
	message, _ := config["message"].(string)

	return &Action{
		to:        to,
		message:   message,
		messenger: f.messenger,
	}, nil
}

type Action struct {
	to        string
	message   string
	messenger delivery.Messenger
}

// Execute resolves the recipient (explicit config wins, then the entity's
// phone field) and sends the rendered message.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeSendSMS)

	to := a.to
	if to == "" {
		to, _ = executionCtx.Entity["phone"].(string)
	}

	if to == "" {
		return nil, ErrMissingRecipient
	}

	body, err := template.RenderWithContext(a.message, &executionCtx)
	if err != nil {
		return nil, err
	}

	if err := a.messenger.SendSMS(ctx, to, body); err != nil {
		return nil, err
	}

	logger.Info("SMS sent", "to", to)

	return map[string]any{"to": to, "body": body}, nil
}
