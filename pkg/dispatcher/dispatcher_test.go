package dispatcher

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/fixlify/automation-engine/pkg/channels/gochannel"
	"github.com/fixlify/automation-engine/pkg/events"
	"github.com/fixlify/automation-engine/pkg/eventbus"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/interpreter"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/fixlify/automation-engine/pkg/protocol"
	"github.com/fixlify/automation-engine/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func strPtr(s string) *string { return &s }

// memStore is an in-memory persistence.Persistence for tests.
type memStore struct {
	mu        sync.Mutex
	workflows map[string]*models.Workflow
	logs      []*models.ExecutionLog
}

func newMemStore(workflows ...*models.Workflow) *memStore {
	store := &memStore{workflows: make(map[string]*models.Workflow)}
	for _, w := range workflows {
		store.workflows[w.ID] = w
	}

	return store
}

func (s *memStore) Workflows(_ context.Context) ([]*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		all = append(all, w)
	}

	return all, nil
}

func (s *memStore) ActiveWorkflowsByEvent(_ context.Context, eventName string) ([]*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*models.Workflow, 0)

	for _, w := range s.workflows {
		if w.IsActive() && w.TriggerKind == models.TriggerKindEntityEvent && w.EventName == eventName {
			matched = append(matched, w)
		}
	}

	return matched, nil
}

func (s *memStore) ScheduledWorkflows(_ context.Context) ([]*models.Workflow, error) {
	return nil, nil
}

func (s *memStore) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	return w, nil
}

func (s *memStore) SaveWorkflow(_ context.Context, w *models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[w.ID] = w

	return nil
}

func (s *memStore) DeleteWorkflow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workflows, id)

	return nil
}

func (s *memStore) SaveExecutionLog(_ context.Context, log *models.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, log)

	return nil
}

func (s *memStore) ExecutionLogs(_ context.Context, workflowID string, _ int) ([]*models.ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]*models.ExecutionLog, 0)

	for _, log := range s.logs {
		if workflowID == "" || log.WorkflowID == workflowID {
			logs = append(logs, log)
		}
	}

	return logs, nil
}

func (s *memStore) savedLogs() []*models.ExecutionLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*models.ExecutionLog(nil), s.logs...)
}

func (s *memStore) HealthCheck(_ context.Context) error { return nil }
func (s *memStore) Close(_ context.Context) error       { return nil }

// countingFactory records executions per workflow via config id.
type countingFactory struct {
	id string

	mu    sync.Mutex
	calls int
}

func (f *countingFactory) ID() string { return f.id }

func (f *countingFactory) Create(_ map[string]any) (protocol.Action, error) {
	return &countingAction{factory: f}, nil
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

type countingAction struct {
	factory *countingFactory
}

func (a *countingAction) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (any, error) {
	a.factory.mu.Lock()
	a.factory.calls++
	a.factory.mu.Unlock()

	return "ok", nil
}

type fixture struct {
	store      *memStore
	guard      *guard.ExecutionGuard
	dispatcher *Dispatcher
	action     *countingFactory
	bus        eventbus.EventBus
}

func newFixture(t *testing.T, maxExecutions int, workflows ...*models.Workflow) *fixture {
	t.Helper()

	logger := testLogger()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	store := newMemStore(workflows...)
	g := guard.New(maxExecutions, time.Minute, logger)

	action := &countingFactory{id: "send_sms"}
	reg := registry.NewRegistry(logger)
	reg.RegisterAction(action)

	interp := interpreter.New(reg, 0, logger)
	disp := New(store, g, bus, logger)
	runner := NewRunner(store, g, interp, bus, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { _ = bus.Close() })

	require.NoError(t, runner.Start(ctx))

	return &fixture{
		store:      store,
		guard:      g,
		dispatcher: disp,
		action:     action,
		bus:        bus,
	}
}

func smsWorkflow(id, eventName string) *models.Workflow {
	return &models.Workflow{
		ID:          id,
		Name:        "Test workflow " + id,
		Status:      models.WorkflowStatusActive,
		TriggerKind: models.TriggerKindEntityEvent,
		EventName:   eventName,
		Steps: []*models.StepNode{
			{ID: "trg", Kind: models.StepKindTrigger, EventName: eventName, Next: strPtr("a1")},
			{ID: "a1", Kind: models.StepKindAction, ActionType: "send_sms"},
		},
	}
}

func TestDispatchEventRunsMatchingWorkflow(t *testing.T) {
	f := newFixture(t, 5, smsWorkflow("wf-1", events.JobCreated))

	f.dispatcher.JobCreated(context.Background(), map[string]any{
		"id":    "job-1",
		"phone": "+15550001111",
	})

	require.Eventually(t, func() bool {
		return f.action.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.store.savedLogs()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	log := f.store.savedLogs()[0]
	assert.Equal(t, "wf-1", log.WorkflowID)
	assert.Equal(t, events.JobCreated, log.EventName)
	assert.Equal(t, models.ExecutionStatusCompleted, log.Status)
	assert.Equal(t, 1, log.StepsRun)

	assert.Equal(t, 1, f.guard.Tracked())
}

func TestDispatchEventNoMatchingWorkflow(t *testing.T) {
	f := newFixture(t, 5, smsWorkflow("wf-1", events.InvoiceCreated))

	f.dispatcher.JobCreated(context.Background(), map[string]any{"id": "job-1"})

	assert.Never(t, func() bool {
		return f.action.count() > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestJobStatusChangedFansOutToJobCompleted(t *testing.T) {
	f := newFixture(t, 5,
		smsWorkflow("wf-status", events.JobStatusChanged),
		smsWorkflow("wf-completed", events.JobCompleted),
	)

	f.dispatcher.JobStatusChanged(context.Background(), "job-1", "in_progress", "completed", map[string]any{
		"id": "job-1",
	})

	require.Eventually(t, func() bool {
		return f.action.count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	workflowIDs := make(map[string]bool)
	for _, log := range f.store.savedLogs() {
		workflowIDs[log.WorkflowID] = true
	}

	assert.True(t, workflowIDs["wf-status"])
	assert.True(t, workflowIDs["wf-completed"])
}

func TestJobStatusChangedWithoutCompletionNoFanOut(t *testing.T) {
	f := newFixture(t, 5,
		smsWorkflow("wf-status", events.JobStatusChanged),
		smsWorkflow("wf-completed", events.JobCompleted),
	)

	f.dispatcher.JobStatusChanged(context.Background(), "job-1", "scheduled", "in_progress", map[string]any{
		"id": "job-1",
	})

	require.Eventually(t, func() bool {
		return f.action.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Never(t, func() bool {
		return f.action.count() > 1
	}, 200*time.Millisecond, 20*time.Millisecond)

	logs := f.store.savedLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "wf-status", logs[0].WorkflowID)
}

func TestCascadePreventionSkipsAutomationCreatedEntities(t *testing.T) {
	f := newFixture(t, 5, smsWorkflow("wf-1", events.JobCreated))

	f.dispatcher.JobCreated(context.Background(), map[string]any{
		"id":                            "job-1",
		models.CreatedByAutomationKey:   "wf-creator",
	})

	assert.Never(t, func() bool {
		return f.action.count() > 0
	}, 200*time.Millisecond, 20*time.Millisecond)

	assert.Equal(t, 0, f.guard.Tracked())
}

func TestGuardBudgetLimitsRepeatedDispatch(t *testing.T) {
	f := newFixture(t, 1, smsWorkflow("wf-1", events.JobCreated))

	job := map[string]any{"id": "job-1"}

	f.dispatcher.JobCreated(context.Background(), job)

	require.Eventually(t, func() bool {
		return f.action.count() == 1 && f.guard.Tracked() == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.dispatcher.JobCreated(context.Background(), job)

	assert.Never(t, func() bool {
		return f.action.count() > 1
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestGuardBudgetIsPerEntity(t *testing.T) {
	f := newFixture(t, 1, smsWorkflow("wf-1", events.JobCreated))

	f.dispatcher.JobCreated(context.Background(), map[string]any{"id": "job-1"})
	f.dispatcher.JobCreated(context.Background(), map[string]any{"id": "job-2"})

	require.Eventually(t, func() bool {
		return f.action.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchEventInvalidEventIsDropped(t *testing.T) {
	f := newFixture(t, 5, smsWorkflow("wf-1", events.JobCreated))

	// Entity without an id produces an empty EntityID, which fails
	// validation; dispatch must swallow it.
	f.dispatcher.JobCreated(context.Background(), map[string]any{"phone": "+15550001111"})

	assert.Never(t, func() bool {
		return f.action.count() > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestDispatchScheduledRunsWorkflow(t *testing.T) {
	scheduled := &models.Workflow{
		ID:          "wf-cron",
		Name:        "Weekly checkup reminder",
		Status:      models.WorkflowStatusActive,
		TriggerKind: models.TriggerKindTimeBased,
		Schedule:    "0 9 * * 1",
		Steps: []*models.StepNode{
			{ID: "trg", Kind: models.StepKindTrigger, Next: strPtr("a1")},
			{ID: "a1", Kind: models.StepKindAction, ActionType: "send_sms"},
		},
	}

	f := newFixture(t, 5, scheduled)

	f.dispatcher.DispatchScheduled(context.Background(), scheduled)

	require.Eventually(t, func() bool {
		return f.action.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	logs := f.store.savedLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, events.ScheduleTick, logs[0].EventName)
	assert.Equal(t, models.EntityTypeWorkflow, logs[0].EntityType)
}

func TestRunnerRecordsFailedExecution(t *testing.T) {
	// Workflow referencing an unregistered action type: a configuration
	// error, so the run fails and the log records it.
	broken := &models.Workflow{
		ID:          "wf-broken",
		Name:        "Broken workflow",
		Status:      models.WorkflowStatusActive,
		TriggerKind: models.TriggerKindEntityEvent,
		EventName:   events.JobCreated,
		Steps: []*models.StepNode{
			{ID: "trg", Kind: models.StepKindTrigger, Next: strPtr("a1")},
			{ID: "a1", Kind: models.StepKindAction, ActionType: "teleport"},
		},
	}

	f := newFixture(t, 5, broken)

	f.dispatcher.JobCreated(context.Background(), map[string]any{"id": "job-1"})

	require.Eventually(t, func() bool {
		logs := f.store.savedLogs()

		return len(logs) == 1 && logs[0].Status == models.ExecutionStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	log := f.store.savedLogs()[0]
	assert.Contains(t, log.Error, "not registered")

	// A failed run still consumes budget.
	assert.Equal(t, 1, f.guard.Tracked())
}
