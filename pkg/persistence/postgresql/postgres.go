// Package postgresql provides PostgreSQL persistence for workflows and
// execution logs.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/fixlify/automation-engine/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

const workflowColumns = `
	id
  , name
  , description
  , status
  , trigger_kind
  , event_name
  , schedule
  , steps
  , metadata
  , created_at
  , updated_at
`

type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects, pings and migrates the database.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows ORDER BY id"

	return p.queryWorkflows(ctx, query)
}

func (p *Persistence) ActiveWorkflowsByEvent(ctx context.Context, eventName string) ([]*models.Workflow, error) {
	query := "SELECT " + workflowColumns + ` FROM workflows
		WHERE status = 'active' AND trigger_kind = 'entity_event' AND event_name = $1
		ORDER BY id`

	return p.queryWorkflows(ctx, query, eventName)
}

func (p *Persistence) ScheduledWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	query := "SELECT " + workflowColumns + ` FROM workflows
		WHERE status = 'active' AND trigger_kind IN ('time_based', 'date_based')
		ORDER BY id`

	return p.queryWorkflows(ctx, query)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE id = $1"

	row := p.db.QueryRowContext(ctx, query, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow %s: %w", id, err)
	}

	return workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	steps, err := json.Marshal(workflow.Steps)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	metadata, err := json.Marshal(workflow.Metadata)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (id, name, description, status, trigger_kind, event_name, schedule, steps, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			trigger_kind = EXCLUDED.trigger_kind,
			event_name = EXCLUDED.event_name,
			schedule = EXCLUDED.schedule,
			steps = EXCLUDED.steps,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		workflow.TriggerKind,
		workflow.EventName,
		workflow.Schedule,
		steps,
		metadata,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (p *Persistence) SaveExecutionLog(ctx context.Context, log *models.ExecutionLog) error {
	query := `
		INSERT INTO execution_logs (id, workflow_id, event_name, entity_type, entity_id, status, steps_run, actions_failed, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := p.db.ExecContext(ctx, query,
		log.ID,
		log.WorkflowID,
		log.EventName,
		log.EntityType,
		log.EntityID,
		log.Status,
		log.StepsRun,
		log.ActionsFailed,
		log.Error,
		log.StartedAt,
		log.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution log %s: %w", log.ID, err)
	}

	return nil
}

func (p *Persistence) ExecutionLogs(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	query := `
		SELECT id, workflow_id, event_name, entity_type, entity_id, status, steps_run, actions_failed, error, started_at, finished_at
		FROM execution_logs
		WHERE ($1 = '' OR workflow_id = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = 100
	}

	rows, err := p.db.QueryContext(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}
	defer p.closeRows(ctx, rows)

	logs := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var log models.ExecutionLog

		err := rows.Scan(
			&log.ID,
			&log.WorkflowID,
			&log.EventName,
			&log.EntityType,
			&log.EntityID,
			&log.Status,
			&log.StepsRun,
			&log.ActionsFailed,
			&log.Error,
			&log.StartedAt,
			&log.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return logs, nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func (p *Persistence) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer p.closeRows(ctx, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (p *Persistence) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWorkflow(row scannable) (*models.Workflow, error) {
	var (
		workflow models.Workflow
		steps    []byte
		metadata []byte
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&workflow.TriggerKind,
		&workflow.EventName,
		&workflow.Schedule,
		&steps,
		&metadata,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(steps, &workflow.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &workflow.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	return &workflow, nil
}
