// Package persistence abstracts storage of workflow definitions and
// execution history. The dispatcher only ever reads workflows; the runner
// only ever appends execution logs.
package persistence

import (
	"context"

	"github.com/fixlify/automation-engine/pkg/models"
)

type Persistence interface {
	// Workflows returns all workflow definitions sorted by ID.
	Workflows(ctx context.Context) ([]*models.Workflow, error)

	// ActiveWorkflowsByEvent returns active entity-event workflows matching
	// the event name, sorted by ID so dispatch order is stable.
	ActiveWorkflowsByEvent(ctx context.Context, eventName string) ([]*models.Workflow, error)

	// ScheduledWorkflows returns active time- and date-based workflows.
	ScheduledWorkflows(ctx context.Context) ([]*models.Workflow, error)

	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	SaveExecutionLog(ctx context.Context, log *models.ExecutionLog) error
	ExecutionLogs(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
