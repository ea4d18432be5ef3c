package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fixlify/automation-engine/pkg/cmd"
	"github.com/fixlify/automation-engine/pkg/dispatcher"
	"github.com/fixlify/automation-engine/pkg/eventbus"
	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/interpreter"
	"github.com/fixlify/automation-engine/pkg/log"
	"github.com/fixlify/automation-engine/pkg/otelhelper"
	"github.com/fixlify/automation-engine/pkg/persistence"
	"github.com/fixlify/automation-engine/pkg/schedule"
	"github.com/fixlify/automation-engine/pkg/sources/queue"
	"github.com/fixlify/automation-engine/pkg/web"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

type EngineConfig struct {
	DatabaseURL          string
	EventBus             string
	Port                 int
	GuardMaxExecutions   int
	GuardCleanupInterval time.Duration
	MaxSteps             int
	ScheduleRefresh      time.Duration
	OTelEnabled          bool
	RedisURL             string
	RedisQueue           string
	Delivery             cmd.DeliveryConfig
}

// Engine composes the whole automation stack: persistence, event bus, guard,
// dispatcher, runner, scheduler, queue source and the HTTP API.
type Engine struct {
	config      EngineConfig
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	guard       *guard.ExecutionGuard
	dispatcher  *dispatcher.Dispatcher
	runner      *dispatcher.Runner
	scheduler   *schedule.Scheduler
	queueSource *queue.Source
	api         *web.API
}

func NewEngine(ctx context.Context, config EngineConfig) (*Engine, error) {
	logger := log.WithModule("fixlify-automations")

	var tracer trace.Tracer

	if config.OTelEnabled {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "fixlify-automations")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	store := cmd.NewPersistence(ctx, logger, config.DatabaseURL)
	eventBus := cmd.NewEventBus(config.EventBus, logger)
	registry := cmd.NewRegistry(logger, config.Delivery)

	executionGuard := guard.New(config.GuardMaxExecutions, config.GuardCleanupInterval, logger)
	interp := interpreter.New(registry, config.MaxSteps, logger)
	disp := dispatcher.New(store, executionGuard, eventBus, logger)
	runner := dispatcher.NewRunner(store, executionGuard, interp, eventBus, tracer, logger)
	scheduler := schedule.NewScheduler(store, disp, config.ScheduleRefresh, logger)

	var queueSource *queue.Source

	if config.RedisURL != "" {
		source, err := queue.NewSource(config.RedisURL, config.RedisQueue, disp, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize queue source: %w", err)
		}

		queueSource = source
	}

	return &Engine{
		config:      config,
		logger:      logger,
		persistence: store,
		eventBus:    eventBus,
		guard:       executionGuard,
		dispatcher:  disp,
		runner:      runner,
		scheduler:   scheduler,
		queueSource: queueSource,
		api:         web.NewAPI(store, disp, executionGuard),
	}, nil
}

// Start runs every component until a shutdown signal arrives.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.handleSignals(cancel)

	errCh := make(chan error, 3)

	go func() {
		if err := e.runner.Start(ctx); err != nil {
			errCh <- fmt.Errorf("runner stopped: %w", err)
		}
	}()

	go func() {
		if err := e.scheduler.Start(ctx); err != nil {
			errCh <- fmt.Errorf("scheduler stopped: %w", err)
		}
	}()

	if e.queueSource != nil {
		if err := e.queueSource.Start(ctx); err != nil {
			return err
		}
	}

	go func() {
		if err := e.api.Start(e.config.Port); err != nil {
			errCh <- fmt.Errorf("http api stopped: %w", err)
		}
	}()

	e.logger.Info("Fixlify automation engine started", "port", e.config.Port)

	var runErr error

	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		e.logger.Error("Component failed, shutting down", "error", runErr)
		cancel()
	}

	e.shutdown(context.Background())

	return runErr
}

func (e *Engine) handleSignals(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		e.logger.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()
}

func (e *Engine) shutdown(ctx context.Context) {
	if e.queueSource != nil {
		if err := e.queueSource.Stop(ctx); err != nil {
			e.logger.Error("Failed to stop queue source", "error", err)
		}
	}

	if err := e.eventBus.Close(); err != nil {
		e.logger.Error("Failed to close event bus", "error", err)
	}

	if err := e.persistence.Close(ctx); err != nil {
		e.logger.Error("Failed to close persistence", "error", err)
	}

	e.logger.Info("Fixlify automation engine stopped")
}

func deliveryConfig(command *cli.Command) cmd.DeliveryConfig {
	return cmd.DeliveryConfig{
		TelnyxAPIKey:     command.String("telnyx-api-key"),
		TelnyxFromNumber: command.String("telnyx-from-number"),
		MailgunAPIKey:    command.String("mailgun-api-key"),
		MailgunDomain:    command.String("mailgun-domain"),
		MailgunFrom:      command.String("mailgun-from"),
		TasksEndpoint:    command.String("tasks-endpoint"),
		TasksAPIKey:      command.String("tasks-api-key"),
		TeamNumber:       command.String("team-number"),
	}
}
