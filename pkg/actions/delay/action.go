// Package delay implements the delay action: a bounded, context-aware wait
// between steps.
package delay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/fixlify/automation-engine/pkg/protocol"
)

// MaxDelay caps configured waits. Traversals run on background goroutines,
// but an unbounded sleep would pin one for hours on a typo.
const MaxDelay = 5 * time.Minute

type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return models.ActionTypeDelay
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	duration, err := parseDuration(config["duration"])
	if err != nil {
		return nil, err
	}

	return &Action{duration: duration}, nil
}

type Action struct {
	duration time.Duration
}

func (a *Action) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeDelay)

	wait := a.duration
	if wait > MaxDelay {
		logger.Warn("Configured delay exceeds cap, clamping", "configured", a.duration, "cap", MaxDelay)
		wait = MaxDelay
	}

	logger.Info("Delaying traversal", "duration", wait)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return map[string]any{"waited": wait.String()}, nil
}

// parseDuration accepts Go duration strings ("30s") or bare numbers of
// seconds, which is what the builder UI stores.
func parseDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("delay: invalid duration %q: %w", d, err)
		}

		return parsed, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	case int:
		return time.Duration(d) * time.Second, nil
	case nil:
		return 0, fmt.Errorf("delay: duration is required")
	default:
		return 0, fmt.Errorf("delay: unsupported duration type %T", v)
	}
}
