// Package notifyteam implements the notify_team action: an SMS to the
// configured team number rather than to the entity's contact.
package notifyteam

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/delivery"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/protocol"
	"github.com/fixlify/automation-engine/pkg/template"
)

var ErrMissingTeamNumber = errors.New("notify_team: no team number configured")

type ActionFactory struct {
	messenger  delivery.Messenger
	teamNumber string
}

// NewActionFactory wires the messenger and the default team number; a step
// config may override the number per workflow.
func NewActionFactory(messenger delivery.Messenger, teamNumber string) *ActionFactory {
	return &ActionFactory{messenger: messenger, teamNumber: teamNumber}
}

func (*ActionFactory) ID() string {
	return models.ActionTypeNotifyTeam
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	to, _ := config["to"].(string)
	if to == "" {
		to = f.teamNumber
	}

	if to == "" {
		return nil, ErrMissingTeamNumber
	}

	message, _ := config["message"].(string)

	return &Action{to: to, message: message, messenger: f.messenger}, nil
}

type Action struct {
	to        string
	message   string
	messenger delivery.Messenger
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeNotifyTeam)

	body, err := template.RenderWithContext(a.message, &executionCtx)
	if err != nil {
		return nil, err
	}

	if err := a.messenger.SendSMS(ctx, a.to, body); err != nil {
		return nil, err
	}

	logger.Info("Team notified", "to", a.to)

	return map[string]any{"to": a.to}, nil
}
