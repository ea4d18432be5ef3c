package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fixlify/automation-engine/pkg/cmd"
	"github.com/fixlify/automation-engine/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored workflow definitions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres://... or file://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			validate := validator.New(validator.WithRequiredStructEnabled())

			logger := slog.With(
				"module", "fixlify-automations",
				"action", "validate",
			)

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					return
				}
			}()

			workflows, err := persistence.Workflows(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch workflows: %w", err)
			}

			logger.Info("Validating workflows", "workflows", len(workflows))

			_, _ = fmt.Fprintln(os.Stdout, "Workflow Validation Results:")
			_, _ = fmt.Fprintln(os.Stdout, "============================")

			invalid := 0

			for _, workflow := range workflows {
				_, _ = fmt.Fprintf(os.Stdout, "\nWorkflow: %s (%s)\n", workflow.Name, workflow.ID)

				problems := validateWorkflow(validate, workflow)
				if len(problems) == 0 {
					_, _ = fmt.Fprintf(os.Stdout, "    ✅ VALID\n")

					continue
				}

				invalid++

				for _, problem := range problems {
					_, _ = fmt.Fprintf(os.Stdout, "    ❌ INVALID: %s\n", problem)
				}
			}

			_, _ = fmt.Fprintf(os.Stdout, "\n%d workflows checked, %d invalid\n", len(workflows), invalid)

			if invalid > 0 {
				return ErrInvalidWorkflows
			}

			return nil
		},
	}
}

func validateWorkflow(validate *validator.Validate, workflow *models.Workflow) []string {
	problems := make([]string, 0)

	if err := validate.Struct(workflow); err != nil {
		problems = append(problems, err.Error())
	}

	if workflow.TriggerStep() == nil {
		problems = append(problems, "no trigger step found")
	}

	if workflow.TriggerKind != models.TriggerKindEntityEvent {
		if _, err := cron.ParseStandard(workflow.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("invalid schedule %q: %v", workflow.Schedule, err))
		}
	}

	for _, step := range workflow.Steps {
		problems = append(problems, validateStep(workflow, step)...)
	}

	return problems
}

func validateStep(workflow *models.Workflow, step *models.StepNode) []string {
	problems := make([]string, 0)

	checkRef := func(label string, ref *string) {
		if ref == nil {
			return
		}

		if _, found := workflow.StepByID(*ref); !found {
			problems = append(problems, fmt.Sprintf("step %s: %s references unknown step %s", step.ID, label, *ref))
		}
	}

	checkRef("next", step.Next)

	switch step.Kind {
	case models.StepKindCondition:
		if step.Condition == nil {
			problems = append(problems, fmt.Sprintf("step %s: condition step without condition", step.ID))
		}

		checkRef("on_yes", step.OnYes)
		checkRef("on_no", step.OnNo)
	case models.StepKindAction:
		if step.ActionType == "" {
			problems = append(problems, fmt.Sprintf("step %s: action step without action_type", step.ID))
		}
	case models.StepKindTrigger:
	default:
		problems = append(problems, fmt.Sprintf("step %s: unknown kind %q", step.ID, step.Kind))
	}

	return problems
}
