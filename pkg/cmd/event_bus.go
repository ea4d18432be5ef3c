package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/fixlify/automation-engine/pkg/channels/gochannel"
	"github.com/fixlify/automation-engine/pkg/channels/kafka"
	"github.com/fixlify/automation-engine/pkg/eventbus"
)

// NewEventBus creates the event bus for the requested provider. "gochannel"
// is in-process and suits single-binary deployments; "kafka" suits running
// the ingestion surface and the runner separately.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), "fixlify-automations")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-process pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
