// Package dispatcher exposes one narrow entry point per recognized business
// event and routes approved executions to the automation runner. Dispatch is
// fire-and-forget: automations are a convenience layer and a failure here
// must never surface into the business operation that triggered it.
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fixlify/automation-engine/pkg/events"
	"github.com/fixlify/automation-engine/pkg/eventbus"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence"
	cache "github.com/patrickmn/go-cache"
)

// Workflow definitions change rarely but matching runs on every business
// event, so the lookup is cached briefly.
const (
	workflowCacheTTL     = 30 * time.Second
	workflowCacheCleanup = time.Minute
)

// StatusCompleted is the job status that fans a status-change dispatch out
// to the job_completed trigger family as well.
const StatusCompleted = "completed"

type Dispatcher struct {
	persistence persistence.Persistence
	guard       *guard.ExecutionGuard
	eventBus    eventbus.EventPublisher
	cache       *cache.Cache
	logger      *slog.Logger
}

func New(store persistence.Persistence, g *guard.ExecutionGuard, bus eventbus.EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence: store,
		guard:       g,
		eventBus:    bus,
		cache:       cache.New(workflowCacheTTL, workflowCacheCleanup),
		logger:      logger.With("module", "trigger_dispatcher"),
	}
}

// JobCreated dispatches workflows listening for new jobs.
func (d *Dispatcher) JobCreated(ctx context.Context, job map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.JobCreated, models.EntityTypeJob, snapshotID(job), job))
}

// JobStatusChanged dispatches status-change workflows, and when the new
// status is "completed" it additionally dispatches the job_completed family.
// One transition can fan out to two trigger families.
func (d *Dispatcher) JobStatusChanged(ctx context.Context, jobID, oldStatus, newStatus string, job map[string]any) {
	snapshot := make(map[string]any, len(job)+3)
	for k, v := range job {
		snapshot[k] = v
	}

	snapshot["status"] = newStatus
	snapshot["old_status"] = oldStatus
	snapshot["new_status"] = newStatus

	d.DispatchEvent(ctx, events.NewTriggerEvent(events.JobStatusChanged, models.EntityTypeJob, jobID, snapshot))

	if newStatus == StatusCompleted {
		d.DispatchEvent(ctx, events.NewTriggerEvent(events.JobCompleted, models.EntityTypeJob, jobID, snapshot))
	}
}

// JobScheduled dispatches workflows listening for jobs getting a schedule.
func (d *Dispatcher) JobScheduled(ctx context.Context, job map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.JobScheduled, models.EntityTypeJob, snapshotID(job), job))
}

// JobCompleted dispatches job-completion workflows directly (for call sites
// that complete a job without going through a status change).
func (d *Dispatcher) JobCompleted(ctx context.Context, job map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.JobCompleted, models.EntityTypeJob, snapshotID(job), job))
}

func (d *Dispatcher) EstimateSent(ctx context.Context, estimate map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.EstimateSent, models.EntityTypeEstimate, snapshotID(estimate), estimate))
}

func (d *Dispatcher) EstimateApproved(ctx context.Context, estimate map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.EstimateApproved, models.EntityTypeEstimate, snapshotID(estimate), estimate))
}

func (d *Dispatcher) InvoiceCreated(ctx context.Context, invoice map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.InvoiceCreated, models.EntityTypeInvoice, snapshotID(invoice), invoice))
}

func (d *Dispatcher) PaymentReceived(ctx context.Context, invoice map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.PaymentReceived, models.EntityTypeInvoice, snapshotID(invoice), invoice))
}

func (d *Dispatcher) MissedCall(ctx context.Context, call map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.MissedCall, models.EntityTypeCall, snapshotID(call), call))
}

func (d *Dispatcher) CustomerInquiry(ctx context.Context, inquiry map[string]any) {
	d.DispatchEvent(ctx, events.NewTriggerEvent(events.CustomerInquiry, models.EntityTypeClient, snapshotID(inquiry), inquiry))
}

// DispatchEvent matches active workflows against the trigger event and asks
// the runner to execute each approved one. All failures are logged here and
// never propagate to the caller.
func (d *Dispatcher) DispatchEvent(ctx context.Context, event events.TriggerEvent) {
	logger := d.logger.With(
		"event", event.Name,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during trigger dispatch", "panic", r)
		}
	}()

	if err := event.Validate(); err != nil {
		logger.Error("Invalid trigger event, skipping dispatch", "error", err)

		return
	}

	// Cascade prevention: entities created by automation never re-trigger.
	if guard.IsCreatedByAutomation(event.Entity) {
		logger.Info("Entity was created by automation, skipping dispatch",
			"created_by", models.CreatedByAutomation(event.Entity))

		return
	}

	workflows, err := d.matchingWorkflows(ctx, event.Name)
	if err != nil {
		logger.Error("Failed to look up workflows", "error", err)

		return
	}

	logger.Debug("Matched workflows", "count", len(workflows))

	for _, workflow := range workflows {
		if !d.guard.CanExecute(workflow.ID, event.EntityID, event.EntityType) {
			// Expected steady-state outcome: the loop-prevention policy is
			// doing its job.
			logger.Warn("Execution budget exhausted, skipping workflow",
				"workflow_id", workflow.ID)

			continue
		}

		dispatch := events.AutomationDispatchRequested{
			BaseEvent: events.NewBaseEvent(events.AutomationDispatchRequestedEvent, workflow.ID),
			Trigger:   event,
		}

		if err := d.eventBus.Publish(ctx, workflow.ID, dispatch); err != nil {
			logger.Error("Failed to request automation dispatch",
				"workflow_id", workflow.ID,
				"error", err)

			continue
		}

		logger.Info("Requested automation dispatch", "workflow_id", workflow.ID)
	}
}

// DispatchScheduled requests one execution of a time-based or date-based
// workflow, bypassing event-name matching. The execution guard still applies,
// keyed on the workflow itself.
func (d *Dispatcher) DispatchScheduled(ctx context.Context, workflow *models.Workflow) {
	logger := d.logger.With("workflow_id", workflow.ID, "event", events.ScheduleTick)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during scheduled dispatch", "panic", r)
		}
	}()

	event := events.NewTriggerEvent(events.ScheduleTick, models.EntityTypeWorkflow, workflow.ID, map[string]any{
		"id":       workflow.ID,
		"schedule": workflow.Schedule,
	})

	if !d.guard.CanExecute(workflow.ID, event.EntityID, event.EntityType) {
		logger.Warn("Execution budget exhausted, skipping scheduled dispatch")

		return
	}

	dispatch := events.AutomationDispatchRequested{
		BaseEvent: events.NewBaseEvent(events.AutomationDispatchRequestedEvent, workflow.ID),
		Trigger:   event,
	}

	if err := d.eventBus.Publish(ctx, workflow.ID, dispatch); err != nil {
		logger.Error("Failed to request scheduled dispatch", "error", err)

		return
	}

	logger.Info("Requested scheduled dispatch")
}

// InvalidateCache drops the cached workflow lookups, for callers that just
// changed definitions and want the next event to see them.
func (d *Dispatcher) InvalidateCache() {
	d.cache.Flush()
}

func (d *Dispatcher) matchingWorkflows(ctx context.Context, eventName string) ([]*models.Workflow, error) {
	if cached, found := d.cache.Get(eventName); found {
		if workflows, ok := cached.([]*models.Workflow); ok {
			return workflows, nil
		}
	}

	workflows, err := d.persistence.ActiveWorkflowsByEvent(ctx, eventName)
	if err != nil {
		return nil, err
	}

	d.cache.Set(eventName, workflows, cache.DefaultExpiration)

	return workflows, nil
}

func snapshotID(entity map[string]any) string {
	if entity == nil {
		return ""
	}

	id, _ := entity["id"].(string)

	return id
}
