// Package callwebhook implements the call_webhook action.
package callwebhook

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/delivery"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/protocol"
)

var ErrMissingURL = errors.New("call_webhook: url is required")

type ActionFactory struct {
	caller delivery.WebhookCaller
}

func NewActionFactory(caller delivery.WebhookCaller) *ActionFactory {
	return &ActionFactory{caller: caller}
}

func (*ActionFactory) ID() string {
	return models.ActionTypeCallWebhook
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, ErrMissingURL
	}

	return &Action{url: url, caller: f.caller}, nil
}

type Action struct {
	url    string
	caller delivery.WebhookCaller
}

// Execute posts the trigger context to the configured URL. The payload shape
// is the engine's own; receivers opt in by configuring the hook.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeCallWebhook)

	payload := map[string]any{
		"execution_id": executionCtx.ID,
		"workflow_id":  executionCtx.WorkflowID,
		"event":        executionCtx.EventName,
		"entity_type":  executionCtx.EntityType,
		"entity_id":    executionCtx.EntityID,
		"entity":       executionCtx.Entity,
	}

	if err := a.caller.CallWebhook(ctx, a.url, payload); err != nil {
		return nil, err
	}

	logger.Info("Webhook called", "url", a.url)

	return map[string]any{"url": a.url}, nil
}
