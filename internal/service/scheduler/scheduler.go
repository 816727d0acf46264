package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/pkg/delivery"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

// SpacingFor maps a category frequency to its minimum spacing interval.
func SpacingFor(f model.Frequency) time.Duration {
	switch f {
	case model.FrequencyTwiceDaily:
		return 12 * time.Hour
	case model.FrequencyWeekly:
		return 7 * 24 * time.Hour
	case model.FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Scheduler turns trigger-engine drafts into finalized notification records
// and hands them to the delivery sink. Plan runs under the profile lock and
// only touches the notification store; Dispatch runs after the lock is
// released so a slow sink never blocks the next pass.
type Scheduler struct {
	cfg     config.EngineConfig
	repo    repository.NotificationRepository
	sink    delivery.Sink
	spacing *gocache.Cache
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

func NewScheduler(
	cfg config.EngineConfig,
	repo repository.NotificationRepository,
	sink delivery.Sink,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		repo:    repo,
		sink:    sink,
		spacing: gocache.New(31*24*time.Hour, time.Hour),
		metrics: m,
		logger:  logger,
	}
}

// Plan applies de-duplication and the per-pass cap to the drafts and
// persists the survivors atomically. Drafts must arrive in catalog order;
// that order breaks priority ties.
func (s *Scheduler) Plan(ctx context.Context, drafts []*model.SmartNotification, prefs *model.NotificationPreferences, now time.Time) ([]*model.SmartNotification, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	deduped, err := s.dedupe(ctx, drafts, prefs, now)
	if err != nil {
		return nil, err
	}

	final := s.applyCap(deduped)
	if len(final) == 0 {
		return nil, nil
	}

	if err := s.repo.CreateBatch(ctx, final); err != nil {
		return nil, fmt.Errorf("persist scheduled notifications: %w", err)
	}

	for _, n := range final {
		s.spacing.Set(spacingKey(n.ProfileID, n.Type), n.ScheduledAt, gocache.DefaultExpiration)
		s.metrics.NotificationsScheduled.WithLabelValues(string(n.Type)).Inc()
	}
	return final, nil
}

// dedupe suppresses a non-critical draft when an unopened notification of
// the same type already sits inside the category's spacing interval.
// Critical drafts are never suppressed.
func (s *Scheduler) dedupe(ctx context.Context, drafts []*model.SmartNotification, prefs *model.NotificationPreferences, now time.Time) ([]*model.SmartNotification, error) {
	kept := make([]*model.SmartNotification, 0, len(drafts))
	plannedInPass := make(map[model.NotificationType]bool)

	for _, draft := range drafts {
		if draft.Priority == model.PriorityCritical {
			kept = append(kept, draft)
			continue
		}

		interval := SpacingFor(prefs.CategoryFrequency(draft.Type))
		since := now.Add(-interval)

		if plannedInPass[draft.Type] {
			s.suppress(draft)
			continue
		}

		if last, found := s.spacing.Get(spacingKey(draft.ProfileID, draft.Type)); found {
			if t, ok := last.(time.Time); ok && t.After(since) {
				s.suppress(draft)
				continue
			}
		}

		prior, err := s.repo.LastUnopenedOfType(ctx, draft.ProfileID, draft.Type, since)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			s.suppress(draft)
			continue
		}

		plannedInPass[draft.Type] = true
		kept = append(kept, draft)
	}
	return kept, nil
}

// applyCap keeps every critical draft and at most MaxPerPass non-critical
// ones, highest priority first, catalog order breaking ties.
func (s *Scheduler) applyCap(drafts []*model.SmartNotification) []*model.SmartNotification {
	var critical, rest []*model.SmartNotification
	for _, d := range drafts {
		if d.Priority == model.PriorityCritical {
			critical = append(critical, d)
		} else {
			rest = append(rest, d)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return rest[i].Priority.Rank() > rest[j].Priority.Rank()
	})
	if len(rest) > s.cfg.MaxPerPass {
		dropped := len(rest) - s.cfg.MaxPerPass
		s.metrics.CapDropped.Add(float64(dropped))
		rest = rest[:s.cfg.MaxPerPass]
	}

	return append(critical, rest...)
}

func (s *Scheduler) suppress(draft *model.SmartNotification) {
	s.metrics.NotificationsSuppressed.WithLabelValues(string(draft.Type)).Inc()
	s.logger.Debug().
		Str("type", string(draft.Type)).
		Str("trigger_id", draft.TriggerID.String()).
		Msg("suppressed duplicate notification")
}

// Dispatch hands finalized notifications to the sink and flips sent only on
// confirmed acceptance. A rejected notification stays unsent and is retried
// on the next pass; the sink de-duplicates by id, giving at-least-once
// delivery. Returns the ids the sink accepted.
func (s *Scheduler) Dispatch(ctx context.Context, finalized []*model.SmartNotification) []uuid.UUID {
	var accepted []uuid.UUID
	for _, n := range finalized {
		if err := s.sink.Deliver(ctx, n); err != nil {
			s.metrics.DeliveriesRejected.WithLabelValues(string(n.Type)).Inc()
			s.logger.Warn().
				Err(err).
				Str("notification_id", n.ID.String()).
				Msg("sink rejected notification, will retry next pass")
			continue
		}

		if err := s.repo.MarkSent(ctx, n.ID); err != nil {
			// The sink has it; the flag catches up on the redelivery pass.
			s.logger.Error().
				Err(err).
				Str("notification_id", n.ID.String()).
				Msg("delivered but failed to mark sent")
			continue
		}

		n.Sent = true
		s.metrics.DeliveriesAccepted.WithLabelValues(string(n.Type)).Inc()
		accepted = append(accepted, n.ID)
	}
	return accepted
}

func spacingKey(profileID uuid.UUID, t model.NotificationType) string {
	return profileID.String() + "|" + string(t)
}
