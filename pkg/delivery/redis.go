package delivery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/pkg/messaging"
)

const (
	// PushChannel carries finalized notifications to the device bridge.
	PushChannel = "notifications.push"
	// OpenedChannel carries opened callbacks back from the device bridge.
	OpenedChannel = "notifications.opened"
)

// RedisSink publishes finalized notifications to the push channel. A
// publish failure is surfaced as a rejection so the scheduler keeps the
// record unsent and retries next pass.
type RedisSink struct {
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewRedisSink(broker messaging.Broker, logger *zerolog.Logger) *RedisSink {
	return &RedisSink{broker: broker, logger: logger}
}

func (s *RedisSink) Deliver(ctx context.Context, notification *model.SmartNotification) error {
	if err := s.broker.Publish(ctx, PushChannel, notification); err != nil {
		s.logger.Warn().
			Err(err).
			Str("notification_id", notification.ID.String()).
			Msg("delivery rejected")
		return fmt.Errorf("push publish: %w", err)
	}
	return nil
}

// OpenedListener consumes opened callbacks from the broker and hands them
// to the supplied handler until the context is cancelled.
type OpenedListener struct {
	broker messaging.Broker
	logger *zerolog.Logger
}

func NewOpenedListener(broker messaging.Broker, logger *zerolog.Logger) *OpenedListener {
	return &OpenedListener{broker: broker, logger: logger}
}

func (l *OpenedListener) Listen(ctx context.Context, handle func(context.Context, OpenedEvent) error) error {
	ch, err := l.broker.Subscribe(ctx, OpenedChannel)
	if err != nil {
		return fmt.Errorf("subscribe opened channel: %w", err)
	}

	for payload := range ch {
		var event OpenedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			l.logger.Warn().Err(err).Msg("dropping malformed opened event")
			continue
		}
		if err := handle(ctx, event); err != nil {
			l.logger.Error().
				Err(err).
				Str("notification_id", event.NotificationID.String()).
				Msg("opened event handler failed")
		}
	}
	return ctx.Err()
}
