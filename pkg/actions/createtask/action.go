// Package createtask implements the create_task action.
package createtask

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/delivery"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/protocol"
	"github.com/fixlify/automation-engine/pkg/template"
)

var ErrMissingTitle = errors.New("create_task: title is required")

type ActionFactory struct {
	creator delivery.TaskCreator
}

func NewActionFactory(creator delivery.TaskCreator) *ActionFactory {
	return &ActionFactory{creator: creator}
}

func (*ActionFactory) ID() string {
	return models.ActionTypeCreateTask
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrMissingTitle
	}

	description, _ := config["description"].(string)
	assignee, _ := config["assignee"].(string)

	return &Action{
		title:       title,
		description: description,
		assignee:    assignee,
		creator:     f.creator,
	}, nil
}

type Action struct {
	title       string
	description string
	assignee    string
	creator     delivery.TaskCreator
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeCreateTask)

	title, err := template.RenderWithContext(a.title, &executionCtx)
	if err != nil {
		return nil, err
	}

	description, err := template.RenderWithContext(a.description, &executionCtx)
	if err != nil {
		return nil, err
	}

	taskID, err := a.creator.CreateTask(ctx, delivery.Task{
		Title:       title,
		Description: description,
		EntityType:  string(executionCtx.EntityType),
		EntityID:    executionCtx.EntityID,
		Assignee:    a.assignee,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Task created", "task_id", taskID, "title", title)

	return map[string]any{"task_id": taskID}, nil
}
