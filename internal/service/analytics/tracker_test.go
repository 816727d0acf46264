package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

var (
	trackNow      = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	trackerShared = metrics.NewMetrics("test", "analytics")
)

type fakeAnalyticsRepo struct {
	byProfile map[uuid.UUID]*model.NotificationAnalytics
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{byProfile: make(map[uuid.UUID]*model.NotificationAnalytics)}
}

func (f *fakeAnalyticsRepo) Load(_ context.Context, profileID uuid.UUID) (*model.NotificationAnalytics, error) {
	if a, ok := f.byProfile[profileID]; ok {
		return a, nil
	}
	return model.NewNotificationAnalytics(), nil
}

func (f *fakeAnalyticsRepo) Save(_ context.Context, profileID uuid.UUID, a *model.NotificationAnalytics) error {
	f.byProfile[profileID] = a
	return nil
}

type stubNotifRepo struct {
	byID      map[uuid.UUID]*model.SmartNotification
	opened    map[uuid.UUID]time.Time
	delivered map[uuid.UUID]time.Time
}

func newStubNotifRepo() *stubNotifRepo {
	return &stubNotifRepo{
		byID:      make(map[uuid.UUID]*model.SmartNotification),
		opened:    make(map[uuid.UUID]time.Time),
		delivered: make(map[uuid.UUID]time.Time),
	}
}

func (s *stubNotifRepo) Create(_ context.Context, n *model.SmartNotification) error {
	s.byID[n.ID] = n
	return nil
}

func (s *stubNotifRepo) CreateBatch(ctx context.Context, notifications []*model.SmartNotification) error {
	for _, n := range notifications {
		s.byID[n.ID] = n
	}
	return nil
}

func (s *stubNotifRepo) Get(_ context.Context, id uuid.UUID) (*model.SmartNotification, error) {
	n, ok := s.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return n, nil
}

func (s *stubNotifRepo) List(_ context.Context, _ uuid.UUID, _ int) ([]*model.SmartNotification, error) {
	return nil, nil
}

func (s *stubNotifRepo) MarkSent(_ context.Context, id uuid.UUID) error {
	s.byID[id].Sent = true
	return nil
}

func (s *stubNotifRepo) ListUnsent(_ context.Context, _ int) ([]*model.SmartNotification, error) {
	return nil, nil
}

func (s *stubNotifRepo) LastUnopenedOfType(_ context.Context, _ uuid.UUID, _ model.NotificationType, _ time.Time) (*model.SmartNotification, error) {
	return nil, nil
}

func (s *stubNotifRepo) LastForTrigger(_ context.Context, _, _ uuid.UUID) (*model.SmartNotification, error) {
	return nil, nil
}

func (s *stubNotifRepo) MarkOpened(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if _, wasOpened := s.opened[id]; wasOpened {
		return false, nil
	}
	s.opened[id] = at
	return true, nil
}

func (s *stubNotifRepo) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if _, wasDelivered := s.delivered[id]; wasDelivered {
		return false, nil
	}
	s.delivered[id] = at
	return true, nil
}

func newTestTracker(repo *fakeAnalyticsRepo, notifRepo *stubNotifRepo) *Tracker {
	l := zerolog.Nop()
	return NewTracker(config.DefaultEngineConfig(), repo, notifRepo, trackerShared, &l)
}

func seedNotification(notifRepo *stubNotifRepo, profileID uuid.UUID, t model.NotificationType) *model.SmartNotification {
	n := &model.SmartNotification{
		ID:        uuid.New(),
		ProfileID: profileID,
		Type:      t,
		CreatedAt: trackNow,
	}
	notifRepo.byID[n.ID] = n
	return n
}

func TestDeliveryConfirmedIncrementsSent(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	notifRepo := newStubNotifRepo()
	tracker := newTestTracker(repo, notifRepo)
	profileID := uuid.New()
	first := seedNotification(notifRepo, profileID, model.NotificationDailyCheckIn)
	second := seedNotification(notifRepo, profileID, model.NotificationDailyCheckIn)

	require.NoError(t, tracker.DeliveryConfirmed(context.Background(), first.ID, trackNow))
	require.NoError(t, tracker.DeliveryConfirmed(context.Background(), second.ID, trackNow))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.TotalSent)
	assert.Equal(t, int64(2), snapshot.ByType[model.NotificationDailyCheckIn].Sent)
}

func TestDeliveryConfirmedCountsOncePerNotification(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	notifRepo := newStubNotifRepo()
	tracker := newTestTracker(repo, notifRepo)
	profileID := uuid.New()
	n := seedNotification(notifRepo, profileID, model.NotificationMoodReminder)

	// Sink acceptance and the device callback both confirm one delivery.
	require.NoError(t, tracker.DeliveryConfirmed(context.Background(), n.ID, trackNow))
	require.NoError(t, tracker.DeliveryConfirmed(context.Background(), n.ID, trackNow.Add(time.Second)))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.TotalSent)
	assert.Equal(t, int64(1), snapshot.ByType[model.NotificationMoodReminder].Sent)
}

func TestOpenedIsIdempotentPerNotification(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	notifRepo := newStubNotifRepo()
	tracker := newTestTracker(repo, notifRepo)
	profileID := uuid.New()
	n := seedNotification(notifRepo, profileID, model.NotificationMoodReminder)

	require.NoError(t, tracker.DeliveryConfirmed(context.Background(), n.ID, trackNow))
	require.NoError(t, tracker.Opened(context.Background(), n.ID, trackNow))
	// The platform can deliver the same opened callback twice.
	require.NoError(t, tracker.Opened(context.Background(), n.ID, trackNow.Add(time.Minute)))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.TotalOpened)
	assert.Equal(t, int64(1), snapshot.ByType[model.NotificationMoodReminder].Opened)
	assert.LessOrEqual(t, snapshot.TotalOpened, snapshot.TotalSent)
	assert.Len(t, snapshot.PendingFollows, 1)
}

func TestEntryLoggedWithinWindowCountsEngaged(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	notifRepo := newStubNotifRepo()
	tracker := newTestTracker(repo, notifRepo)
	profileID := uuid.New()
	n := seedNotification(notifRepo, profileID, model.NotificationCrisisSupport)

	require.NoError(t, tracker.DeliveryConfirmed(context.Background(), n.ID, trackNow))
	require.NoError(t, tracker.Opened(context.Background(), n.ID, trackNow))
	require.NoError(t, tracker.EntryLogged(context.Background(), profileID, trackNow.Add(3*time.Hour)))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.OpensEngaged)
	assert.Equal(t, int64(1), snapshot.OpensResolved)
	assert.Empty(t, snapshot.PendingFollows)
	assert.Equal(t, 1.0, snapshot.EffectivenessScore())
}

func TestEntryLoggedAfterWindowCountsMissed(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	notifRepo := newStubNotifRepo()
	tracker := newTestTracker(repo, notifRepo)
	profileID := uuid.New()
	n := seedNotification(notifRepo, profileID, model.NotificationEncouragement)

	require.NoError(t, tracker.Opened(context.Background(), n.ID, trackNow))
	// Two days later is past the 24h follow-up window.
	require.NoError(t, tracker.EntryLogged(context.Background(), profileID, trackNow.Add(48*time.Hour)))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.OpensEngaged)
	assert.Equal(t, int64(1), snapshot.OpensResolved)
	assert.Equal(t, 0.0, snapshot.EffectivenessScore())
}

func TestEntryLoggedWithNoPendingFollowUpsIsNoop(t *testing.T) {
	repo := newFakeAnalyticsRepo()
	tracker := newTestTracker(repo, newStubNotifRepo())
	profileID := uuid.New()

	require.NoError(t, tracker.EntryLogged(context.Background(), profileID, trackNow))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.OpensResolved)
}

func TestRatesGuardZeroDenominators(t *testing.T) {
	a := model.NewNotificationAnalytics()

	assert.Equal(t, 0.0, a.OpenRate())
	assert.Equal(t, 0.0, a.EffectivenessScore())

	a.TotalSent = 4
	a.TotalOpened = 1
	assert.Equal(t, 0.25, a.OpenRate())
}
