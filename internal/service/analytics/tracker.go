package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

// Tracker maintains the notification engagement counters. All updates are
// incremental: opened events enqueue a follow-up deadline, and the next
// journal entry (or deadline expiry) resolves it, so effectiveness never
// needs a rescan of history.
type Tracker struct {
	cfg       config.EngineConfig
	repo      repository.AnalyticsRepository
	notifRepo repository.NotificationRepository
	metrics   *metrics.Metrics
	logger    *zerolog.Logger

	// Counter updates are load-modify-save; a single writer keeps them
	// linear across the API callbacks and the broker listener.
	mu sync.Mutex
}

func NewTracker(
	cfg config.EngineConfig,
	repo repository.AnalyticsRepository,
	notifRepo repository.NotificationRepository,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Tracker {
	return &Tracker{
		cfg:       cfg,
		repo:      repo,
		notifRepo: notifRepo,
		metrics:   m,
		logger:    logger,
	}
}

// DeliveryConfirmed bumps the sent counters for a delivered notification,
// once per notification id. The same delivery can be confirmed twice (sink
// acceptance and the device callback); repeats are no-ops, which keeps
// TotalSent an upper bound for TotalOpened.
func (t *Tracker) DeliveryConfirmed(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	first, err := t.notifRepo.MarkDelivered(ctx, notificationID, at)
	if err != nil {
		return err
	}
	if !first {
		t.logger.Debug().
			Str("notification_id", notificationID.String()).
			Msg("duplicate delivery confirmation ignored")
		return nil
	}

	n, err := t.notifRepo.Get(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}

	analytics, err := t.repo.Load(ctx, n.ProfileID)
	if err != nil {
		return err
	}

	analytics.TotalSent++
	stats := analytics.ByType[n.Type]
	stats.Sent++
	analytics.ByType[n.Type] = stats

	return t.repo.Save(ctx, n.ProfileID, analytics)
}

// Opened records an opened event exactly once per notification id; repeat
// events are no-ops. A first open also starts the effectiveness follow-up
// window.
func (t *Tracker) Opened(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	first, err := t.notifRepo.MarkOpened(ctx, notificationID, at)
	if err != nil {
		return err
	}
	if !first {
		t.logger.Debug().
			Str("notification_id", notificationID.String()).
			Msg("duplicate opened event ignored")
		return nil
	}

	n, err := t.notifRepo.Get(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("load notification: %w", err)
	}

	analytics, err := t.repo.Load(ctx, n.ProfileID)
	if err != nil {
		return err
	}

	analytics.TotalOpened++
	stats := analytics.ByType[n.Type]
	stats.Opened++
	analytics.ByType[n.Type] = stats

	t.expirePending(analytics, at)
	analytics.PendingFollows = append(analytics.PendingFollows, model.PendingFollowUp{
		NotificationID: notificationID,
		OpenedAt:       at,
		Deadline:       at.Add(t.cfg.FollowUpWindow),
	})

	t.metrics.OpenedEvents.Inc()
	return t.repo.Save(ctx, n.ProfileID, analytics)
}

// EntryLogged resolves pending follow-ups: opens whose window contains the
// new entry count as engaged, expired ones as missed.
func (t *Tracker) EntryLogged(ctx context.Context, profileID uuid.UUID, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	analytics, err := t.repo.Load(ctx, profileID)
	if err != nil {
		return err
	}

	if len(analytics.PendingFollows) == 0 {
		return nil
	}

	var remaining []model.PendingFollowUp
	for _, p := range analytics.PendingFollows {
		switch {
		case !at.Before(p.OpenedAt) && !at.After(p.Deadline):
			analytics.OpensEngaged++
			analytics.OpensResolved++
		case at.After(p.Deadline):
			analytics.OpensResolved++
		default:
			remaining = append(remaining, p)
		}
	}
	analytics.PendingFollows = remaining

	return t.repo.Save(ctx, profileID, analytics)
}

// expirePending moves lapsed follow-ups to resolved-not-engaged.
func (t *Tracker) expirePending(analytics *model.NotificationAnalytics, now time.Time) {
	var remaining []model.PendingFollowUp
	for _, p := range analytics.PendingFollows {
		if now.After(p.Deadline) {
			analytics.OpensResolved++
			continue
		}
		remaining = append(remaining, p)
	}
	analytics.PendingFollows = remaining
}

// Snapshot returns the current aggregates for a profile.
func (t *Tracker) Snapshot(ctx context.Context, profileID uuid.UUID) (*model.NotificationAnalytics, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.repo.Load(ctx, profileID)
}
