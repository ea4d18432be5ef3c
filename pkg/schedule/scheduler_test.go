package schedule

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/fixlify/automation-engine/pkg/channels/gochannel"
	"github.com/fixlify/automation-engine/pkg/dispatcher"
	"github.com/fixlify/automation-engine/pkg/eventbus"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScheduler(t *testing.T) (*Scheduler, *file.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	store := file.NewPersistence(t.TempDir())
	g := guard.New(5, time.Minute, logger)

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	disp := dispatcher.New(store, g, bus, logger)

	return NewScheduler(store, disp, time.Minute, logger), store
}

func scheduledWorkflow(id, cronExpr string) *models.Workflow {
	next := "a1"

	return &models.Workflow{
		ID:          id,
		Name:        "Scheduled " + id,
		Status:      models.WorkflowStatusActive,
		TriggerKind: models.TriggerKindTimeBased,
		Schedule:    cronExpr,
		Steps: []*models.StepNode{
			{ID: "trg", Kind: models.StepKindTrigger, Next: &next},
			{ID: "a1", Kind: models.StepKindAction, ActionType: models.ActionTypeSendSMS},
		},
	}
}

func TestSyncRegistersScheduledWorkflows(t *testing.T) {
	s, store := testScheduler(t)
	ctx := context.Background()

	require.NoError(t, store.SaveWorkflow(ctx, scheduledWorkflow("wf-1", "0 9 * * 1")))
	require.NoError(t, store.SaveWorkflow(ctx, scheduledWorkflow("wf-2", "*/5 * * * *")))

	require.NoError(t, s.sync(ctx))

	assert.ElementsMatch(t, []string{"wf-1", "wf-2"}, s.Entries())
}

func TestSyncSkipsInvalidCron(t *testing.T) {
	s, store := testScheduler(t)
	ctx := context.Background()

	require.NoError(t, store.SaveWorkflow(ctx, scheduledWorkflow("wf-good", "0 9 * * 1")))
	require.NoError(t, store.SaveWorkflow(ctx, scheduledWorkflow("wf-bad", "whenever")))

	require.NoError(t, s.sync(ctx))

	assert.Equal(t, []string{"wf-good"}, s.Entries())
}

func TestSyncRemovesDeletedWorkflows(t *testing.T) {
	s, store := testScheduler(t)
	ctx := context.Background()

	require.NoError(t, store.SaveWorkflow(ctx, scheduledWorkflow("wf-1", "0 9 * * 1")))
	require.NoError(t, s.sync(ctx))
	require.Equal(t, []string{"wf-1"}, s.Entries())

	require.NoError(t, store.DeleteWorkflow(ctx, "wf-1"))
	require.NoError(t, s.sync(ctx))

	assert.Empty(t, s.Entries())
}

func TestSyncReregistersChangedSchedule(t *testing.T) {
	s, store := testScheduler(t)
	ctx := context.Background()

	workflow := scheduledWorkflow("wf-1", "0 9 * * 1")
	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	require.NoError(t, s.sync(ctx))

	workflow.Schedule = "0 18 * * 5"
	require.NoError(t, store.SaveWorkflow(ctx, workflow))
	require.NoError(t, s.sync(ctx))

	assert.Equal(t, []string{"wf-1"}, s.Entries())
	assert.Equal(t, "0 18 * * 5", s.schedules["wf-1"])
}

func TestSyncIgnoresEventWorkflows(t *testing.T) {
	s, store := testScheduler(t)
	ctx := context.Background()

	eventDriven := scheduledWorkflow("wf-event", "")
	eventDriven.TriggerKind = models.TriggerKindEntityEvent
	eventDriven.EventName = "job_created"

	require.NoError(t, store.SaveWorkflow(ctx, eventDriven))
	require.NoError(t, s.sync(ctx))

	assert.Empty(t, s.Entries())
}
