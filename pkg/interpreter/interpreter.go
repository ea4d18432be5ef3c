// Package interpreter walks a workflow's step graph for one trigger event,
// evaluating condition nodes and performing action side effects.
package interpreter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/events"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/registry"
	"github.com/google/uuid"
)

// DefaultMaxSteps bounds a single traversal. The workflow graph is expected
// to be a DAG; this is the safety net for a malformed one, separate from the
// execution guard's per-entity cap.
const DefaultMaxSteps = 50

var (
	ErrNoTriggerStep   = fmt.Errorf("workflow has no trigger step")
	ErrMaxStepsReached = fmt.Errorf("maximum step count exceeded")
)

type Interpreter struct {
	registry *registry.Registry
	maxSteps int
	logger   *slog.Logger
}

func New(reg *registry.Registry, maxSteps int, logger *slog.Logger) *Interpreter {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	return &Interpreter{
		registry: reg,
		maxSteps: maxSteps,
		logger:   logger.With("module", "interpreter"),
	}
}

// Result summarizes one traversal. ActionsFailed counts delivery failures,
// which are best-effort and never abort the traversal.
type Result struct {
	ExecutionID   string
	StepsRun      int
	ActionsFailed int
}

// Run traverses the workflow starting at the trigger node's successor. It
// returns an error only for configuration problems (missing trigger, broken
// successor reference, unconfigured action) or the step bound; delivery
// failures are logged and traversal continues.
func (i *Interpreter) Run(ctx context.Context, workflow *models.Workflow, trigger events.TriggerEvent) (*Result, error) {
	executionCtx := models.ExecutionContext{
		ID:          generateExecutionID(),
		WorkflowID:  workflow.ID,
		EventName:   trigger.Name,
		EntityType:  trigger.EntityType,
		EntityID:    trigger.EntityID,
		Entity:      trigger.Entity,
		StepResults: make(map[string]any),
	}

	logger := i.logger.With(
		"execution_id", executionCtx.ID,
		"workflow_id", workflow.ID,
		"event", trigger.Name,
	)

	result := &Result{ExecutionID: executionCtx.ID}

	triggerStep := workflow.TriggerStep()
	if triggerStep == nil {
		return result, ErrNoTriggerStep
	}

	logger.Info("Starting workflow traversal")

	current := triggerStep.Next
	for current != nil {
		if result.StepsRun >= i.maxSteps {
			logger.Warn("Traversal exceeded step bound, stopping", "max_steps", i.maxSteps)

			return result, ErrMaxStepsReached
		}

		step, found := workflow.StepByID(*current)
		if !found {
			return result, fmt.Errorf("step %s not found in workflow %s", *current, workflow.ID)
		}

		result.StepsRun++

		switch step.Kind {
		case models.StepKindCondition:
			current = i.runCondition(step, &executionCtx, logger)
		case models.StepKindAction:
			failed, err := i.runAction(ctx, step, &executionCtx, logger)
			if err != nil {
				return result, err
			}

			if failed {
				result.ActionsFailed++
			}

			current = step.Next
		case models.StepKindTrigger:
			// A second trigger node is a malformed graph.
			return result, fmt.Errorf("unexpected trigger step %s mid-graph in workflow %s", step.ID, workflow.ID)
		default:
			return result, fmt.Errorf("unknown step kind %q in workflow %s", step.Kind, workflow.ID)
		}
	}

	logger.Info("Completed workflow traversal", "steps_run", result.StepsRun, "actions_failed", result.ActionsFailed)

	return result, nil
}

func (i *Interpreter) runCondition(step *models.StepNode, executionCtx *models.ExecutionContext, logger *slog.Logger) *string {
	if step.Condition == nil {
		logger.Error("Condition step has no condition configured, stopping branch", "step_id", step.ID)

		return nil
	}

	matched := step.Condition.Evaluate(executionCtx.Entity)
	executionCtx.StepResults[step.ID] = matched

	logger.Debug("Evaluated condition",
		"step_id", step.ID,
		"field", step.Condition.Field,
		"operator", step.Condition.Operator,
		"matched", matched)

	if matched {
		return step.OnYes
	}

	return step.OnNo
}

// runAction performs the step's side effect. A factory error is a
// configuration problem and is returned; an execution error is a delivery
// problem, recorded in StepResults and swallowed.
func (i *Interpreter) runAction(ctx context.Context, step *models.StepNode, executionCtx *models.ExecutionContext, logger *slog.Logger) (bool, error) {
	config := make(map[string]any, len(step.Config)+1)
	for k, v := range step.Config {
		config[k] = v
	}
	config["id"] = step.ID

	action, err := i.registry.CreateAction(step.ActionType, config)
	if err != nil {
		logger.Error("Failed to create action", "step_id", step.ID, "action_type", step.ActionType, "error", err)

		return false, fmt.Errorf("failed to create action for step %s: %w", step.ID, err)
	}

	stepLogger := logger.With("step_id", step.ID, "action_type", step.ActionType)

	output, err := action.Execute(ctx, *executionCtx, stepLogger)
	if err != nil {
		stepLogger.Error("Action failed, continuing traversal", "error", err)
		executionCtx.StepResults[step.ID] = map[string]any{"error": err.Error()}

		return true, nil
	}

	executionCtx.StepResults[step.ID] = output

	return false, nil
}

func generateExecutionID() string {
	return fmt.Sprintf("exec-%s", uuid.New().String()[:8])
}
