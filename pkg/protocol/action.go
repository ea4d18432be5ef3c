// Package protocol defines the contracts between the step interpreter and
// the action implementations it drives.
package protocol

import (
	"context"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/models"
)

// Action is one side effect performed by an action step. Failures are
// best-effort: the interpreter logs them and continues with the next node.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFactory builds actions of one type from step configuration.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
}
