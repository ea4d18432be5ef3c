package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fixlify/automation-engine/pkg/events"
	"github.com/fixlify/automation-engine/pkg/eventbus"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/interpreter"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/otelhelper"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Runner consumes dispatch requests from the event bus and executes them
// with the interpreter. Each request runs on its own goroutine so a slow
// delay action never blocks the subscription loop.
type Runner struct {
	id          string
	persistence persistence.Persistence
	guard       *guard.ExecutionGuard
	interpreter *interpreter.Interpreter
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewRunner(
	store persistence.Persistence,
	g *guard.ExecutionGuard,
	interp *interpreter.Interpreter,
	bus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Runner {
	id := "runner-" + uuid.New().String()[:8]

	return &Runner{
		id:          id,
		persistence: store,
		guard:       g,
		interpreter: interp,
		eventBus:    bus,
		tracer:      tracer,
		logger:      logger.With("module", "automation_runner", "runner_id", id),
	}
}

// Start registers the dispatch handler and begins consuming from the bus.
// It blocks until the subscription ends.
func (r *Runner) Start(ctx context.Context) error {
	err := r.eventBus.Handle(events.AutomationDispatchRequestedEvent, func(ctx context.Context, event any) error {
		dispatch, ok := event.(*events.AutomationDispatchRequested)
		if !ok {
			return fmt.Errorf("unexpected event payload %T for %s", event, events.AutomationDispatchRequestedEvent)
		}

		// Ack immediately; the execution itself is fire-and-forget.
		go r.execute(ctx, dispatch)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register dispatch handler: %w", err)
	}

	r.logger.Info("Automation runner started")

	return r.eventBus.Subscribe(ctx)
}

func (r *Runner) execute(ctx context.Context, dispatch *events.AutomationDispatchRequested) {
	trigger := dispatch.Trigger
	logger := r.logger.With(
		"workflow_id", dispatch.WorkflowID,
		"event", trigger.Name,
		"entity_type", trigger.EntityType,
		"entity_id", trigger.EntityID,
	)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic during automation execution", "panic", rec)
		}
	}()

	startedAt := time.Now().UTC()

	if r.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, r.tracer, "automation.execute",
			attribute.String(otelhelper.WorkflowIDKey, dispatch.WorkflowID),
			attribute.String(otelhelper.EventNameKey, trigger.Name),
			attribute.String(otelhelper.EntityTypeKey, string(trigger.EntityType)),
			attribute.String(otelhelper.EntityIDKey, trigger.EntityID),
			attribute.String(otelhelper.RunnerIDKey, r.id),
		)
		defer span.End()
	}

	workflow, err := r.persistence.WorkflowByID(ctx, dispatch.WorkflowID)
	if err != nil {
		logger.Error("Failed to load workflow for dispatch", "error", err)

		return
	}

	if !workflow.IsActive() {
		logger.Info("Workflow no longer active, skipping execution")

		return
	}

	result, runErr := r.interpreter.Run(ctx, workflow, trigger)

	// The budget counts dispatched runs regardless of outcome; a failing
	// workflow must not get extra attempts.
	r.guard.TrackExecution(workflow.ID, trigger.EntityID, trigger.EntityType)

	finishedAt := time.Now().UTC()
	duration := finishedAt.Sub(startedAt)

	log := &models.ExecutionLog{
		ID:            result.ExecutionID,
		WorkflowID:    workflow.ID,
		EventName:     trigger.Name,
		EntityType:    trigger.EntityType,
		EntityID:      trigger.EntityID,
		Status:        models.ExecutionStatusCompleted,
		StepsRun:      result.StepsRun,
		ActionsFailed: result.ActionsFailed,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}

	if runErr != nil {
		log.Status = models.ExecutionStatusFailed
		log.Error = runErr.Error()

		trace.SpanFromContext(ctx).SetStatus(codes.Error, runErr.Error())
	}

	if err := r.persistence.SaveExecutionLog(ctx, log); err != nil {
		logger.Error("Failed to save execution log", "execution_id", result.ExecutionID, "error", err)
	}

	if runErr != nil {
		logger.Error("Automation execution failed",
			"execution_id", result.ExecutionID,
			"steps_run", result.StepsRun,
			"error", runErr)

		r.publish(ctx, workflow.ID, events.AutomationFailed{
			BaseEvent:   events.NewBaseEvent(events.AutomationFailedEvent, workflow.ID),
			ExecutionID: result.ExecutionID,
			Error:       runErr.Error(),
			Duration:    duration,
		})

		return
	}

	logger.Info("Automation execution completed",
		"execution_id", result.ExecutionID,
		"steps_run", result.StepsRun,
		"actions_failed", result.ActionsFailed,
		"duration", duration)

	r.publish(ctx, workflow.ID, events.AutomationCompleted{
		BaseEvent:   events.NewBaseEvent(events.AutomationCompletedEvent, workflow.ID),
		ExecutionID: result.ExecutionID,
		StepsRun:    result.StepsRun,
		Duration:    duration,
	})
}

func (r *Runner) publish(ctx context.Context, workflowID string, event eventbus.Event) {
	if err := r.eventBus.Publish(ctx, workflowID, event); err != nil {
		r.logger.Error("Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"workflow_id", workflowID,
			"error", err)
	}
}
