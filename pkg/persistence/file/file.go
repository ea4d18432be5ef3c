// Package file provides file-based persistence for workflows and execution
// logs, used in development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence"
)

const (
	workflowsDir  = "workflows"
	executionsDir = "executions"
)

// Persistence implements persistence.Persistence on the file system. Each
// workflow is one JSON file; execution logs append under executions/.
type Persistence struct {
	root string
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (fp *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	dir := filepath.Join(fp.root, workflowsDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		workflow, err := fp.readWorkflow(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })

	return workflows, nil
}

func (fp *Persistence) ActiveWorkflowsByEvent(ctx context.Context, eventName string) ([]*models.Workflow, error) {
	workflows, err := fp.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.IsActive() &&
			workflow.TriggerKind == models.TriggerKindEntityEvent &&
			workflow.EventName == eventName {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

func (fp *Persistence) ScheduledWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := fp.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.IsActive() && workflow.TriggerKind != models.TriggerKindEntityEvent {
			matched = append(matched, workflow)
		}
	}

	return matched, nil
}

func (fp *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := fp.readWorkflow(fp.workflowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, err
	}

	return workflow, nil
}

func (fp *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if err := os.MkdirAll(filepath.Join(fp.root, workflowsDir), 0o755); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := os.WriteFile(fp.workflowPath(workflow.ID), data, 0o644); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (fp *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	err := os.Remove(fp.workflowPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (fp *Persistence) SaveExecutionLog(ctx context.Context, log *models.ExecutionLog) error {
	dir := filepath.Join(fp.root, executionsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution log %s: %w", log.ID, err)
	}

	path := filepath.Join(dir, log.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write execution log %s: %w", log.ID, err)
	}

	return nil
}

func (fp *Persistence) ExecutionLogs(ctx context.Context, workflowID string, limit int) ([]*models.ExecutionLog, error) {
	dir := filepath.Join(fp.root, executionsDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read executions directory: %w", err)
	}

	logs := make([]*models.ExecutionLog, 0)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read execution log %s: %w", entry.Name(), err)
		}

		var log models.ExecutionLog
		if err := json.Unmarshal(data, &log); err != nil {
			return nil, fmt.Errorf("failed to decode execution log %s: %w", entry.Name(), err)
		}

		if workflowID != "" && log.WorkflowID != workflowID {
			continue
		}

		logs = append(logs, &log)
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].StartedAt.After(logs[j].StartedAt) })

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}

	return logs, nil
}

func (fp *Persistence) HealthCheck(ctx context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

func (fp *Persistence) workflowPath(id string) string {
	return filepath.Join(fp.root, workflowsDir, id+".json")
}

func (fp *Persistence) readWorkflow(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateWorkflowJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", persistence.ErrWorkflowInvalid, filepath.Base(path), err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", filepath.Base(path), err)
	}

	return &workflow, nil
}
