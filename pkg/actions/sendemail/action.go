// Package sendemail implements the send_email action.
package sendemail

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/delivery"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/protocol"
	"github.com/fixlify/automation-engine/pkg/template"
)

var ErrMissingRecipient = errors.New("send_email: no recipient configured and entity has no email")

type ActionFactory struct {
	mailer delivery.Mailer
}

func NewActionFactory(mailer delivery.Mailer) *ActionFactory {
	return &ActionFactory{mailer: mailer}
}

func (*ActionFactory) ID() string {
	return models.ActionTypeSendEmail
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	to, _ := config["to"].(string)
	subject, _ := config["subject"].(string)
	body, _ := config["body"].(string)

	return &Action{
		to:      to,
		subject: subject,
		body:    body,
		mailer:  f.mailer,
	}, nil
}

type Action struct {
	to      string
	subject string
	body    string
	mailer  delivery.Mailer
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeSendEmail)

	to := a.to
	if to == "" {
		to, _ = executionCtx.Entity["email"].(string)
	}

	if to == "" {
		return nil, ErrMissingRecipient
	}

	subject, err := template.RenderWithContext(a.subject, &executionCtx)
	if err != nil {
		return nil, err
	}

	body, err := template.RenderWithContext(a.body, &executionCtx)
	if err != nil {
		return nil, err
	}

	if err := a.mailer.SendEmail(ctx, to, subject, body); err != nil {
		return nil, err
	}

	logger.Info("Email sent", "to", to, "subject", subject)

	return map[string]any{"to": to, "subject": subject}, nil
}
