package delay

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestParseDurationVariants(t *testing.T) {
	tests := []struct {
		name        string
		config      map[string]any
		expected    time.Duration
		expectError bool
	}{
		{"duration string", map[string]any{"duration": "30s"}, 30 * time.Second, false},
		{"json number seconds", map[string]any{"duration": 2.5}, 2500 * time.Millisecond, false},
		{"int seconds", map[string]any{"duration": 10}, 10 * time.Second, false},
		{"missing duration", map[string]any{}, 0, true},
		{"garbage string", map[string]any{"duration": "soon"}, 0, true},
		{"unsupported type", map[string]any{"duration": []string{"5s"}}, 0, true},
	}

	factory := NewActionFactory()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := factory.Create(tt.config)
			if tt.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, action.(*Action).duration)
		})
	}
}

func TestExecuteWaits(t *testing.T) {
	factory := NewActionFactory()

	action, err := factory.Create(map[string]any{"duration": "20ms"})
	require.NoError(t, err)

	start := time.Now()

	output, err := action.Execute(context.Background(), models.ExecutionContext{}, testLogger())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, map[string]any{"waited": "20ms"}, output)
}

func TestExecuteCancelledContext(t *testing.T) {
	factory := NewActionFactory()

	action, err := factory.Create(map[string]any{"duration": "10s"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()

	_, err = action.Execute(ctx, models.ExecutionContext{}, testLogger())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFactoryID(t *testing.T) {
	assert.Equal(t, models.ActionTypeDelay, NewActionFactory().ID())
}
