// Package queue ingests business events pushed onto a Redis list by the
// telephony integration (missed calls, inbound customer inquiries) and hands
// them to the trigger dispatcher.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fixlify/automation-engine/pkg/dispatcher"
	"github.com/fixlify/automation-engine/pkg/events"
	"github.com/fixlify/automation-engine/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	// DefaultQueue is the list the telephony webhook bridge pushes to.
	DefaultQueue = "fixlify:events"

	popTimeout     = time.Second
	connectTimeout = 5 * time.Second
)

// inboundEvent is the wire shape pushed onto the queue.
type inboundEvent struct {
	Event      string         `json:"event"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Entity     map[string]any `json:"entity"`
}

// Source consumes one Redis list and dispatches each decoded event. Messages
// that cannot be decoded are logged and dropped; the queue must keep moving.
type Source struct {
	queue      string
	client     redis.UniversalClient
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewSource(redisURL, queue string, disp *dispatcher.Dispatcher, logger *slog.Logger) (*Source, error) {
	if queue == "" {
		queue = DefaultQueue
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Source{
		queue:      queue,
		client:     redis.NewClient(options),
		dispatcher: disp,
		logger:     logger.With("module", "queue_source", "queue", queue),
		stopCh:     make(chan struct{}),
	}, nil
}

// Start verifies the connection and begins consuming on a background
// goroutine.
func (s *Source) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	s.logger.InfoContext(ctx, "Starting queue source")

	s.wg.Add(1)

	go s.consume(ctx)

	return nil
}

// Stop halts the consumer and closes the connection.
func (s *Source) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping queue source")

	close(s.stopCh)
	s.wg.Wait()

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := s.processMessage(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *Source) processMessage(ctx context.Context) error {
	result, err := s.client.BLPop(ctx, popTimeout, s.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var inbound inboundEvent
	if err := json.Unmarshal([]byte(message), &inbound); err != nil {
		s.logger.ErrorContext(ctx, "Dropping undecodable queue message", "error", err)

		return nil
	}

	event := events.NewTriggerEvent(
		inbound.Event,
		models.EntityType(inbound.EntityType),
		inbound.EntityID,
		inbound.Entity,
	)

	s.logger.InfoContext(ctx, "Received queue event",
		"event", event.Name,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID)

	s.dispatcher.DispatchEvent(ctx, event)

	return nil
}
