// Package cmd provides common initialization for command-line entry points.
package cmd

import (
	"log/slog"

	"github.com/fixlify/automation-engine/pkg/actions/callwebhook"
	"github.com/fixlify/automation-engine/pkg/actions/createtask"
	"github.com/fixlify/automation-engine/pkg/actions/delay"
	"github.com/fixlify/automation-engine/pkg/actions/notifyteam"
	"github.com/fixlify/automation-engine/pkg/actions/sendemail"
	"github.com/fixlify/automation-engine/pkg/actions/sendsms"
	"github.com/fixlify/automation-engine/pkg/delivery/mailgun"
	"github.com/fixlify/automation-engine/pkg/delivery/tasks"
	"github.com/fixlify/automation-engine/pkg/delivery/telnyx"
	"github.com/fixlify/automation-engine/pkg/delivery/webhook"
	"github.com/fixlify/automation-engine/pkg/registry"
)

// DeliveryConfig carries the credentials for the delivery integrations.
type DeliveryConfig struct {
	TelnyxAPIKey     string
	TelnyxFromNumber string
	MailgunAPIKey    string
	MailgunDomain    string
	MailgunFrom      string
	TasksEndpoint    string
	TasksAPIKey      string
	TeamNumber       string
}

// NewRegistry wires every built-in action with its delivery client.
func NewRegistry(logger *slog.Logger, config DeliveryConfig) *registry.Registry {
	reg := registry.NewRegistry(logger)

	messenger := telnyx.NewClient(config.TelnyxAPIKey, config.TelnyxFromNumber)
	mailer := mailgun.NewClient(config.MailgunAPIKey, config.MailgunDomain, config.MailgunFrom)
	taskCreator := tasks.NewCreator(config.TasksEndpoint, config.TasksAPIKey)
	webhookCaller := webhook.NewCaller()

	reg.RegisterAction(sendsms.NewActionFactory(messenger))
	reg.RegisterAction(sendemail.NewActionFactory(mailer))
	reg.RegisterAction(createtask.NewActionFactory(taskCreator))
	reg.RegisterAction(callwebhook.NewActionFactory(webhookCaller))
	reg.RegisterAction(delay.NewActionFactory())
	reg.RegisterAction(notifyteam.NewActionFactory(messenger, config.TeamNumber))

	return reg
}
