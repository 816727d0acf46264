package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/pkg/delivery"
	"github.com/havenapp/mood-engine/pkg/logger"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

// RedeliveryConfig tunes the unsent-notification retry loop.
type RedeliveryConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

// DeliveryConfirmer receives the confirmation for a delivered notification.
// Confirmation must be idempotent per notification id: the same delivery
// can also be confirmed by the device callback.
type DeliveryConfirmer interface {
	DeliveryConfirmed(ctx context.Context, notificationID uuid.UUID, at time.Time) error
}

// Redelivery re-dispatches notifications the sink rejected on a previous
// pass. The sink de-duplicates by id, so re-offering an already-accepted
// notification is harmless; this is what gives the engine its
// at-least-once delivery semantics.
type Redelivery struct {
	repo      repository.NotificationRepository
	sink      delivery.Sink
	confirmer DeliveryConfirmer
	config    RedeliveryConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewRedelivery(
	repo repository.NotificationRepository,
	sink delivery.Sink,
	confirmer DeliveryConfirmer,
	config RedeliveryConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Redelivery {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}

	return &Redelivery{
		repo:      repo,
		sink:      sink,
		confirmer: confirmer,
		config:    config,
		logger:    logger,
		metrics:   metrics,
	}
}

func (r *Redelivery) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	r.logger.Info("Starting redelivery worker")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down redelivery worker")
			return
		case <-ticker.C:
			if err := r.processUnsent(ctx); err != nil {
				r.logger.Error(err, "Failed to process unsent notifications")
			}
		}
	}
}

func (r *Redelivery) processUnsent(ctx context.Context) error {
	unsent, err := r.repo.ListUnsent(ctx, r.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unsent notifications: %w", err)
	}

	for _, n := range unsent {
		r.metrics.RedeliveryAttempts.Inc()

		if err := r.sink.Deliver(ctx, n); err != nil {
			r.logger.Debug("Sink still rejecting notification",
				"notification_id", n.ID.String())
			continue
		}

		if err := r.repo.MarkSent(ctx, n.ID); err != nil {
			r.logger.Error(err, "Delivered but failed to mark sent",
				"notification_id", n.ID.String())
			continue
		}

		// A late acceptance counts toward analytics the same way a
		// first-pass acceptance does; an opened event for this id would
		// otherwise outrun the sent counter.
		if err := r.confirmer.DeliveryConfirmed(ctx, n.ID, time.Now()); err != nil {
			r.logger.Error(err, "Failed to record delivery confirmation",
				"notification_id", n.ID.String())
		}

		r.metrics.DeliveriesAccepted.WithLabelValues(string(n.Type)).Inc()
	}

	return nil
}
