// Package main provides the fixlify-automations binary: event ingestion,
// trigger dispatch and workflow execution in one process.
package main

import (
	"context"
	"os"

	"github.com/fixlify/automation-engine/pkg/guard"
	"github.com/fixlify/automation-engine/pkg/interpreter"
	"github.com/fixlify/automation-engine/pkg/log"
	"github.com/fixlify/automation-engine/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "fixlify-automations",
		Usage:                 "Run the Fixlify automation engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or file://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP listen port",
				Value:   9090,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json, pretty)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
			&cli.IntFlag{
				Name:    "guard-max-executions",
				Usage:   "Execution budget per workflow and entity within one cleanup window",
				Value:   guard.DefaultMaxExecutions,
				Sources: cli.EnvVars("GUARD_MAX_EXECUTIONS"),
			},
			&cli.DurationFlag{
				Name:    "guard-cleanup-interval",
				Usage:   "How long execution counts live before the wholesale reset",
				Value:   guard.DefaultCleanupInterval,
				Sources: cli.EnvVars("GUARD_CLEANUP_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "max-steps",
				Usage:   "Step bound for a single workflow traversal",
				Value:   interpreter.DefaultMaxSteps,
				Sources: cli.EnvVars("MAX_STEPS"),
			},
			&cli.DurationFlag{
				Name:    "schedule-refresh-interval",
				Usage:   "How often the scheduler re-reads workflow definitions",
				Value:   schedule.DefaultRefreshInterval,
				Sources: cli.EnvVars("SCHEDULE_REFRESH_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the telephony event queue (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-queue",
				Usage:   "Redis list to consume telephony events from",
				Sources: cli.EnvVars("REDIS_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "telnyx-api-key",
				Usage:   "Telnyx API key for SMS delivery",
				Sources: cli.EnvVars("TELNYX_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "telnyx-from-number",
				Usage:   "Sender number for outbound SMS",
				Sources: cli.EnvVars("TELNYX_FROM_NUMBER"),
			},
			&cli.StringFlag{
				Name:    "mailgun-api-key",
				Usage:   "Mailgun API key for email delivery",
				Sources: cli.EnvVars("MAILGUN_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "mailgun-domain",
				Usage:   "Mailgun sending domain",
				Sources: cli.EnvVars("MAILGUN_DOMAIN"),
			},
			&cli.StringFlag{
				Name:    "mailgun-from",
				Usage:   "Sender address for outbound email",
				Sources: cli.EnvVars("MAILGUN_FROM"),
			},
			&cli.StringFlag{
				Name:    "tasks-endpoint",
				Usage:   "Endpoint of the task service used by the create_task action",
				Sources: cli.EnvVars("TASKS_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "tasks-api-key",
				Usage:   "API key for the task service",
				Sources: cli.EnvVars("TASKS_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "team-number",
				Usage:   "Default phone number for the notify_team action",
				Sources: cli.EnvVars("TEAM_NUMBER"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			engine, err := NewEngine(ctx, EngineConfig{
				DatabaseURL:          command.String("database-url"),
				EventBus:             command.String("event-bus"),
				Port:                 command.Int("port"),
				GuardMaxExecutions:   command.Int("guard-max-executions"),
				GuardCleanupInterval: command.Duration("guard-cleanup-interval"),
				MaxSteps:             command.Int("max-steps"),
				ScheduleRefresh:      command.Duration("schedule-refresh-interval"),
				OTelEnabled:          command.Bool("otel"),
				RedisURL:             command.String("redis-url"),
				RedisQueue:           command.String("redis-queue"),
				Delivery:             deliveryConfig(command),
			})
			if err != nil {
				return err
			}

			return engine.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
