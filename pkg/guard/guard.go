// Package guard implements the execution safeguard that keeps automations
// from firing repeatedly for the same entity and from cascading off
// entities that automation itself created.
package guard

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fixlify/automation-engine/pkg/models"
)

const (
	// DefaultMaxExecutions is the per-(workflow, entity) execution budget
	// within one tracking window.
	DefaultMaxExecutions = 5

	// DefaultCleanupInterval is how long tracked counts live before the
	// wholesale reset.
	DefaultCleanupInterval = 5 * time.Minute
)

// trackingKey identifies one (workflow, entity) pair. Distinct triples never
// collide: the composite struct key makes that structural.
type trackingKey struct {
	workflowID string
	entityType models.EntityType
	entityID   string
}

// ExecutionGuard counts workflow executions per entity and refuses further
// runs once the budget is exhausted. Counts are discarded wholesale when the
// cleanup timer fires; the goal is loop-breaking, not accurate rate
// accounting. Safe for concurrent use.
type ExecutionGuard struct {
	mu     sync.Mutex
	counts map[trackingKey]int
	timer  *time.Timer

	maxExecutions   int
	cleanupInterval time.Duration
	logger          *slog.Logger
}

// New creates an execution guard. Non-positive maxExecutions or
// cleanupInterval fall back to the defaults.
func New(maxExecutions int, cleanupInterval time.Duration, logger *slog.Logger) *ExecutionGuard {
	if maxExecutions <= 0 {
		maxExecutions = DefaultMaxExecutions
	}

	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	return &ExecutionGuard{
		counts:          make(map[trackingKey]int),
		maxExecutions:   maxExecutions,
		cleanupInterval: cleanupInterval,
		logger:          logger.With("module", "execution_guard"),
	}
}

// CanExecute reports whether the workflow may run for the entity. It is
// side-effect free. Empty identifiers are refused outright.
func (g *ExecutionGuard) CanExecute(workflowID, entityID string, entityType models.EntityType) bool {
	if workflowID == "" || entityID == "" || entityType == "" {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.counts[trackingKey{workflowID, entityType, entityID}] < g.maxExecutions
}

// TrackExecution records one dispatched execution for the entity. Callers
// must only invoke it after CanExecute returned true and the execution was
// actually dispatched. The first tracked key arms the cleanup timer.
func (g *ExecutionGuard) TrackExecution(workflowID, entityID string, entityType models.EntityType) {
	if workflowID == "" || entityID == "" || entityType == "" {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := trackingKey{workflowID, entityType, entityID}
	g.counts[key]++

	g.logger.Debug("Tracked execution",
		"workflow_id", workflowID,
		"entity_type", entityType,
		"entity_id", entityID,
		"count", g.counts[key])

	if g.timer == nil {
		g.timer = time.AfterFunc(g.cleanupInterval, g.cleanup)
	}
}

// cleanup discards every tracked count at once. The timer is not re-armed;
// the next TrackExecution starts a fresh window.
func (g *ExecutionGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	discarded := len(g.counts)
	g.counts = make(map[trackingKey]int)
	g.timer = nil

	g.logger.Debug("Cleanup window elapsed, execution counts discarded", "discarded", discarded)
}

// Reset clears all tracked state and stops the cleanup timer. Exposed for
// test isolation and operator-invoked emergency recovery.
func (g *ExecutionGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}

	g.counts = make(map[trackingKey]int)

	g.logger.Info("Execution guard reset")
}

// Tracked returns how many (workflow, entity) pairs currently hold counts.
func (g *ExecutionGuard) Tracked() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.counts)
}

// IsCreatedByAutomation reports whether the entity snapshot carries the
// marker of a creating workflow. Trigger call-sites skip dispatch entirely
// for such entities to break creation chains.
func IsCreatedByAutomation(entity map[string]any) bool {
	return models.CreatedByAutomation(entity) != ""
}
