// Package schedule runs time-based and date-based workflows on their cron
// expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fixlify/automation-engine/pkg/dispatcher"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/robfig/cron/v3"
)

// DefaultRefreshInterval is how often the scheduler re-reads workflow
// definitions to pick up edits.
const DefaultRefreshInterval = time.Minute

// Scheduler keeps one cron entry per active scheduled workflow and refreshes
// the entry set periodically from persistence.
type Scheduler struct {
	persistence persistence.Persistence
	dispatcher  *dispatcher.Dispatcher
	refresh     time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	// schedules remembers each workflow's expression so edits re-register.
	schedules map[string]string
}

func NewScheduler(store persistence.Persistence, disp *dispatcher.Dispatcher, refresh time.Duration, logger *slog.Logger) *Scheduler {
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}

	return &Scheduler{
		persistence: store,
		dispatcher:  disp,
		refresh:     refresh,
		logger:      logger.With("module", "scheduler"),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries:   make(map[string]cron.EntryID),
		schedules: make(map[string]string),
	}
}

// Start loads the initial entry set, starts cron and blocks refreshing until
// the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.sync(ctx); err != nil {
		return fmt.Errorf("failed to load scheduled workflows: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", "workflows", len(s.entries))

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()

			return nil
		case <-ticker.C:
			if err := s.sync(ctx); err != nil {
				s.logger.Error("Failed to refresh scheduled workflows", "error", err)
			}
		}
	}
}

// Stop halts cron and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries returns the IDs of workflows currently scheduled.
func (s *Scheduler) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}

	return ids
}

func (s *Scheduler) sync(ctx context.Context) error {
	workflows, err := s.persistence.ScheduledWorkflows(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(workflows))

	for _, workflow := range workflows {
		seen[workflow.ID] = true

		if current, registered := s.entries[workflow.ID]; registered {
			if s.schedules[workflow.ID] == workflow.Schedule {
				continue
			}

			s.cron.Remove(current)
			delete(s.entries, workflow.ID)
			delete(s.schedules, workflow.ID)
		}

		if err := s.register(ctx, workflow); err != nil {
			s.logger.Error("Failed to schedule workflow",
				"workflow_id", workflow.ID,
				"schedule", workflow.Schedule,
				"error", err)
		}
	}

	for id, entryID := range s.entries {
		if !seen[id] {
			s.cron.Remove(entryID)
			delete(s.entries, id)
			delete(s.schedules, id)
			s.logger.Info("Unscheduled workflow", "workflow_id", id)
		}
	}

	return nil
}

func (s *Scheduler) register(ctx context.Context, workflow *models.Workflow) error {
	if _, err := cron.ParseStandard(workflow.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", workflow.Schedule, err)
	}

	id := workflow.ID

	entryID, err := s.cron.AddFunc(workflow.Schedule, func() {
		current, err := s.persistence.WorkflowByID(ctx, id)
		if err != nil {
			s.logger.Error("Failed to load workflow for scheduled run", "workflow_id", id, "error", err)

			return
		}

		s.dispatcher.DispatchScheduled(ctx, current)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron entry: %w", err)
	}

	s.entries[id] = entryID
	s.schedules[id] = workflow.Schedule
	s.logger.Info("Scheduled workflow", "workflow_id", id, "schedule", workflow.Schedule)

	return nil
}
