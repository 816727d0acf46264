package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/service/analytics"
	"github.com/havenapp/mood-engine/pkg/logger"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

var (
	redeliveryNow    = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	redeliveryShared = metrics.NewMetrics("test", "redelivery")
)

type memNotifStore struct {
	byID      map[uuid.UUID]*model.SmartNotification
	order     []uuid.UUID
	opened    map[uuid.UUID]time.Time
	delivered map[uuid.UUID]time.Time
}

func newMemNotifStore() *memNotifStore {
	return &memNotifStore{
		byID:      make(map[uuid.UUID]*model.SmartNotification),
		opened:    make(map[uuid.UUID]time.Time),
		delivered: make(map[uuid.UUID]time.Time),
	}
}

func (m *memNotifStore) Create(_ context.Context, n *model.SmartNotification) error {
	m.byID[n.ID] = n
	m.order = append(m.order, n.ID)
	return nil
}

func (m *memNotifStore) CreateBatch(ctx context.Context, notifications []*model.SmartNotification) error {
	for _, n := range notifications {
		if err := m.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (m *memNotifStore) Get(_ context.Context, id uuid.UUID) (*model.SmartNotification, error) {
	n, ok := m.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return n, nil
}

func (m *memNotifStore) List(_ context.Context, profileID uuid.UUID, limit int) ([]*model.SmartNotification, error) {
	var out []*model.SmartNotification
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if n := m.byID[m.order[i]]; n.ProfileID == profileID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifStore) MarkSent(_ context.Context, id uuid.UUID) error {
	n, ok := m.byID[id]
	if !ok {
		return errors.New("not found")
	}
	n.Sent = true
	return nil
}

func (m *memNotifStore) ListUnsent(_ context.Context, limit int) ([]*model.SmartNotification, error) {
	var out []*model.SmartNotification
	for _, id := range m.order {
		if len(out) == limit {
			break
		}
		if n := m.byID[id]; !n.Sent {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifStore) LastUnopenedOfType(_ context.Context, _ uuid.UUID, _ model.NotificationType, _ time.Time) (*model.SmartNotification, error) {
	return nil, nil
}

func (m *memNotifStore) LastForTrigger(_ context.Context, _, _ uuid.UUID) (*model.SmartNotification, error) {
	return nil, nil
}

func (m *memNotifStore) MarkOpened(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if _, wasOpened := m.opened[id]; wasOpened {
		return false, nil
	}
	m.opened[id] = at
	return true, nil
}

func (m *memNotifStore) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if _, wasDelivered := m.delivered[id]; wasDelivered {
		return false, nil
	}
	m.delivered[id] = at
	return true, nil
}

type memAnalyticsStore struct {
	byProfile map[uuid.UUID]*model.NotificationAnalytics
}

func (m *memAnalyticsStore) Load(_ context.Context, profileID uuid.UUID) (*model.NotificationAnalytics, error) {
	if m.byProfile == nil {
		m.byProfile = make(map[uuid.UUID]*model.NotificationAnalytics)
	}
	if a, ok := m.byProfile[profileID]; ok {
		return a, nil
	}
	return model.NewNotificationAnalytics(), nil
}

func (m *memAnalyticsStore) Save(_ context.Context, profileID uuid.UUID, a *model.NotificationAnalytics) error {
	if m.byProfile == nil {
		m.byProfile = make(map[uuid.UUID]*model.NotificationAnalytics)
	}
	m.byProfile[profileID] = a
	return nil
}

type flakySink struct {
	reject    map[uuid.UUID]bool
	delivered []uuid.UUID
}

func (s *flakySink) Deliver(_ context.Context, n *model.SmartNotification) error {
	if s.reject[n.ID] {
		return errors.New("bridge unavailable")
	}
	s.delivered = append(s.delivered, n.ID)
	return nil
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func unsentNotification(profileID uuid.UUID) *model.SmartNotification {
	return &model.SmartNotification{
		ID:          uuid.New(),
		ProfileID:   profileID,
		Type:        model.NotificationMoodReminder,
		Title:       "title",
		Body:        "body",
		Priority:    model.PriorityNormal,
		ScheduledAt: redeliveryNow,
		CreatedAt:   redeliveryNow,
	}
}

func TestProcessUnsentConfirmsDeliveryToAnalytics(t *testing.T) {
	store := newMemNotifStore()
	sink := &flakySink{reject: make(map[uuid.UUID]bool)}
	zl := zerolog.Nop()
	tracker := analytics.NewTracker(config.DefaultEngineConfig(), &memAnalyticsStore{}, store, redeliveryShared, &zl)

	profileID := uuid.New()
	n := unsentNotification(profileID)
	require.NoError(t, store.Create(context.Background(), n))

	r := NewRedelivery(store, sink, tracker, RedeliveryConfig{
		BatchSize:    10,
		PollInterval: time.Minute,
	}, quietLogger(), redeliveryShared)

	require.NoError(t, r.processUnsent(context.Background()))
	assert.True(t, store.byID[n.ID].Sent)

	// The late acceptance counts as sent, so an opened callback for the
	// same id can never outrun the sent counter.
	require.NoError(t, tracker.Opened(context.Background(), n.ID, redeliveryNow.Add(time.Minute)))

	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.TotalSent)
	assert.Equal(t, int64(1), snapshot.TotalOpened)
	assert.LessOrEqual(t, snapshot.TotalOpened, snapshot.TotalSent)
}

func TestProcessUnsentSkipsConfirmationWhileRejected(t *testing.T) {
	store := newMemNotifStore()
	sink := &flakySink{reject: make(map[uuid.UUID]bool)}
	zl := zerolog.Nop()
	analyticsStore := &memAnalyticsStore{}
	tracker := analytics.NewTracker(config.DefaultEngineConfig(), analyticsStore, store, redeliveryShared, &zl)

	profileID := uuid.New()
	n := unsentNotification(profileID)
	sink.reject[n.ID] = true
	require.NoError(t, store.Create(context.Background(), n))

	r := NewRedelivery(store, sink, tracker, RedeliveryConfig{
		BatchSize:    10,
		PollInterval: time.Minute,
	}, quietLogger(), redeliveryShared)

	require.NoError(t, r.processUnsent(context.Background()))

	assert.False(t, store.byID[n.ID].Sent)
	snapshot, err := tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.TotalSent)

	// Once the sink recovers the next poll delivers and confirms it.
	sink.reject[n.ID] = false
	require.NoError(t, r.processUnsent(context.Background()))

	assert.True(t, store.byID[n.ID].Sent)
	snapshot, err = tracker.Snapshot(context.Background(), profileID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snapshot.TotalSent)
}
