package evaluation

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/service/analytics"
	"github.com/havenapp/mood-engine/internal/service/scheduler"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

var (
	evalNow    = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	evalShared = metrics.NewMetrics("test", "evaluation")
)

// ---- in-memory fakes -------------------------------------------------------

type memJournal struct {
	entries []*model.MoodEntry
	fail    bool
}

func (m *memJournal) Append(_ context.Context, e *model.MoodEntry) error {
	if m.fail {
		return apperrors.StorageUnavailable("journal", errors.New("down"))
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) ListSince(_ context.Context, profileID uuid.UUID, since time.Time) ([]*model.MoodEntry, error) {
	var out []*model.MoodEntry
	for _, e := range m.entries {
		if e.ProfileID == profileID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memJournal) ListRecent(_ context.Context, profileID uuid.UUID, limit int) ([]*model.MoodEntry, error) {
	if m.fail {
		return nil, apperrors.StorageUnavailable("journal", errors.New("down"))
	}
	var out []*model.MoodEntry
	for _, e := range m.entries {
		if e.ProfileID == profileID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memJournal) Latest(ctx context.Context, profileID uuid.UUID) (*model.MoodEntry, error) {
	recent, err := m.ListRecent(ctx, profileID, 1)
	if err != nil || len(recent) == 0 {
		return nil, err
	}
	return recent[0], nil
}

func (m *memJournal) Count(_ context.Context, profileID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range m.entries {
		if e.ProfileID == profileID {
			n++
		}
	}
	return n, nil
}

func (m *memJournal) Delete(_ context.Context, profileID, entryID uuid.UUID) error {
	for i, e := range m.entries {
		if e.ProfileID == profileID && e.ID == entryID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("entry", nil)
}

type memAlerts struct {
	alerts []*model.CrisisAlert
	states map[uuid.UUID]*model.DetectorState
	fail   bool
}

func newMemAlerts() *memAlerts {
	return &memAlerts{states: make(map[uuid.UUID]*model.DetectorState)}
}

func (m *memAlerts) Append(_ context.Context, a *model.CrisisAlert) error {
	if m.fail {
		return apperrors.StorageUnavailable("alert", errors.New("down"))
	}
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *memAlerts) Latest(_ context.Context, profileID uuid.UUID) (*model.CrisisAlert, error) {
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].ProfileID == profileID {
			return m.alerts[i], nil
		}
	}
	return nil, nil
}

func (m *memAlerts) List(_ context.Context, profileID uuid.UUID, limit int) ([]*model.CrisisAlert, error) {
	var out []*model.CrisisAlert
	for i := len(m.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if m.alerts[i].ProfileID == profileID {
			out = append(out, m.alerts[i])
		}
	}
	return out, nil
}

func (m *memAlerts) GetDetectorState(_ context.Context, profileID uuid.UUID) (*model.DetectorState, error) {
	if m.fail {
		return nil, apperrors.StorageUnavailable("alert", errors.New("down"))
	}
	if s, ok := m.states[profileID]; ok {
		return s, nil
	}
	return &model.DetectorState{ProfileID: profileID}, nil
}

func (m *memAlerts) SaveDetectorState(_ context.Context, state *model.DetectorState) error {
	if m.fail {
		return apperrors.StorageUnavailable("alert", errors.New("down"))
	}
	m.states[state.ProfileID] = state
	return nil
}

type memPrefs struct {
	byProfile map[uuid.UUID]*model.NotificationPreferences
	fail      bool
}

func (m *memPrefs) Load(_ context.Context, profileID uuid.UUID) (*model.NotificationPreferences, error) {
	if m.fail {
		return nil, apperrors.StorageUnavailable("preferences", errors.New("down"))
	}
	if p, ok := m.byProfile[profileID]; ok {
		return p, nil
	}
	return model.DefaultPreferences(), nil
}

func (m *memPrefs) Save(_ context.Context, profileID uuid.UUID, p *model.NotificationPreferences) error {
	if m.byProfile == nil {
		m.byProfile = make(map[uuid.UUID]*model.NotificationPreferences)
	}
	m.byProfile[profileID] = p
	return nil
}

type memTriggers struct {
	catalog []*model.NotificationTrigger
}

func (m *memTriggers) List(_ context.Context, _ uuid.UUID) ([]*model.NotificationTrigger, error) {
	return m.catalog, nil
}

func (m *memTriggers) Upsert(_ context.Context, _ uuid.UUID, t *model.NotificationTrigger) error {
	m.catalog = append(m.catalog, t)
	return nil
}

func (m *memTriggers) Delete(_ context.Context, _, triggerID uuid.UUID) error {
	for i, t := range m.catalog {
		if t.ID == triggerID {
			m.catalog = append(m.catalog[:i], m.catalog[i+1:]...)
			return nil
		}
	}
	return nil
}

type memNotifs struct {
	byID      map[uuid.UUID]*model.SmartNotification
	order     []uuid.UUID
	opened    map[uuid.UUID]time.Time
	delivered map[uuid.UUID]time.Time
}

func newMemNotifs() *memNotifs {
	return &memNotifs{
		byID:      make(map[uuid.UUID]*model.SmartNotification),
		opened:    make(map[uuid.UUID]time.Time),
		delivered: make(map[uuid.UUID]time.Time),
	}
}

func (m *memNotifs) Create(_ context.Context, n *model.SmartNotification) error {
	m.byID[n.ID] = n
	m.order = append(m.order, n.ID)
	return nil
}

func (m *memNotifs) CreateBatch(ctx context.Context, notifications []*model.SmartNotification) error {
	for _, n := range notifications {
		if err := m.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (m *memNotifs) Get(_ context.Context, id uuid.UUID) (*model.SmartNotification, error) {
	n, ok := m.byID[id]
	if !ok {
		return nil, apperrors.NotFound("notification", nil)
	}
	return n, nil
}

func (m *memNotifs) List(_ context.Context, profileID uuid.UUID, limit int) ([]*model.SmartNotification, error) {
	var out []*model.SmartNotification
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if n := m.byID[m.order[i]]; n.ProfileID == profileID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifs) MarkSent(_ context.Context, id uuid.UUID) error {
	n, ok := m.byID[id]
	if !ok {
		return apperrors.NotFound("notification", nil)
	}
	n.Sent = true
	return nil
}

func (m *memNotifs) ListUnsent(_ context.Context, limit int) ([]*model.SmartNotification, error) {
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

func (m *memNotifs) LastUnopenedOfType(_ context.Context, profileID uuid.UUID, t model.NotificationType, since time.Time) (*model.SmartNotification, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.byID[m.order[i]]
		if n.ProfileID != profileID || n.Type != t || n.ScheduledAt.Before(since) {
			continue
		}
		if _, wasOpened := m.opened[n.ID]; wasOpened {
			continue
		}
		return n, nil
	}
	return nil, nil
}

func (m *memNotifs) LastForTrigger(_ context.Context, profileID, triggerID uuid.UUID) (*model.SmartNotification, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.byID[m.order[i]]
		if n.ProfileID == profileID && n.TriggerID == triggerID {
			return n, nil
		}
	}
	return nil, nil
}

func (m *memNotifs) MarkOpened(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if _, wasOpened := m.opened[id]; wasOpened {
		return false, nil
	}
	m.opened[id] = at
	return true, nil
}

func (m *memNotifs) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if _, wasDelivered := m.delivered[id]; wasDelivered {
		return false, nil
	}
	m.delivered[id] = at
	return true, nil
}

type memProfiles struct {
	byID map[uuid.UUID]*model.Profile
}

func (m *memProfiles) Create(_ context.Context, p *model.Profile) error {
	if m.byID == nil {
		m.byID = make(map[uuid.UUID]*model.Profile)
	}
	m.byID[p.ID] = p
	return nil
}

func (m *memProfiles) Get(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("profile", nil)
}

func (m *memProfiles) GetByName(_ context.Context, name string) (*model.Profile, error) {
	for _, p := range m.byID {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("profile", nil)
}

func (m *memProfiles) List(_ context.Context) ([]*model.Profile, error) {
	var out []*model.Profile
	for _, p := range m.byID {
		out = append(out, p)
	}
	return out, nil
}

type acceptAllSink struct {
	delivered []*model.SmartNotification
}

func (s *acceptAllSink) Deliver(_ context.Context, n *model.SmartNotification) error {
	s.delivered = append(s.delivered, n)
	return nil
}

type recordingMailer struct {
	contacted []string
}

func (m *recordingMailer) NotifyContact(_ context.Context, contactEmail string, _ *model.CrisisAlert) error {
	m.contacted = append(m.contacted, contactEmail)
	return nil
}

// ---- fixture ---------------------------------------------------------------

type fixture struct {
	svc       *Service
	journal   *memJournal
	alerts    *memAlerts
	prefs     *memPrefs
	triggers  *memTriggers
	notifs    *memNotifs
	profiles  *memProfiles
	sink      *acceptAllSink
	mailer    *recordingMailer
	profileID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := zerolog.Nop()
	cfg := config.DefaultEngineConfig()

	f := &fixture{
		journal:   &memJournal{},
		alerts:    newMemAlerts(),
		prefs:     &memPrefs{},
		triggers:  &memTriggers{},
		notifs:    newMemNotifs(),
		profiles:  &memProfiles{},
		sink:      &acceptAllSink{},
		mailer:    &recordingMailer{},
		profileID: uuid.New(),
	}

	require.NoError(t, f.profiles.Create(context.Background(), &model.Profile{
		ID:             f.profileID,
		Name:           "test",
		EmergencyEmail: "contact@example.com",
		CreatedAt:      evalNow,
	}))

	analyticsRepo := &memAnalytics{}
	tracker := analytics.NewTracker(cfg, analyticsRepo, f.notifs, evalShared, &l)
	sched := scheduler.NewScheduler(cfg, f.notifs, f.sink, evalShared, &l)

	f.svc = NewService(cfg, Deps{
		JournalRepo: f.journal,
		AlertRepo:   f.alerts,
		PrefsRepo:   f.prefs,
		TriggerRepo: f.triggers,
		NotifRepo:   f.notifs,
		ProfileRepo: f.profiles,
		Scheduler:   sched,
		Tracker:     tracker,
		Mailer:      f.mailer,
		Metrics:     evalShared,
		Logger:      &l,
	})
	return f
}

type memAnalytics struct {
	byProfile map[uuid.UUID]*model.NotificationAnalytics
}

func (m *memAnalytics) Load(_ context.Context, profileID uuid.UUID) (*model.NotificationAnalytics, error) {
	if m.byProfile == nil {
		m.byProfile = make(map[uuid.UUID]*model.NotificationAnalytics)
	}
	if a, ok := m.byProfile[profileID]; ok {
		return a, nil
	}
	return model.NewNotificationAnalytics(), nil
}

func (m *memAnalytics) Save(_ context.Context, profileID uuid.UUID, a *model.NotificationAnalytics) error {
	if m.byProfile == nil {
		m.byProfile = make(map[uuid.UUID]*model.NotificationAnalytics)
	}
	m.byProfile[profileID] = a
	return nil
}

func (f *fixture) addEntries(t *testing.T, scores []int, latestSigns []string) {
	t.Helper()
	for i, score := range scores {
		e := &model.MoodEntry{
			ID:        uuid.New(),
			ProfileID: f.profileID,
			EntryDate: evalNow.AddDate(0, 0, i-len(scores)),
			Score:     score,
			CreatedAt: evalNow.AddDate(0, 0, i-len(scores)),
		}
		if i == len(scores)-1 {
			e.WarningSigns = latestSigns
		}
		require.NoError(t, f.journal.Append(context.Background(), e))
	}
}

func crisisTrigger() *model.NotificationTrigger {
	return &model.NotificationTrigger{
		ID:            uuid.New(),
		Kind:          model.TriggerCrisisLevel,
		Type:          model.NotificationCrisisSupport,
		Conditions:    model.TriggerConditions{MinSeverity: model.SeverityModerate},
		TitleTemplate: "Support is here",
		BodyTemplate:  "A {severity} alert was raised. Your safety plan can help.",
		Priority:      model.PriorityHigh,
		Enabled:       true,
	}
}

// ---- tests -----------------------------------------------------------------

func TestEvaluateFullCrisisPass(t *testing.T) {
	f := newFixture(t)
	f.addEntries(t, []int{6, 4, 3, 2}, []string{"isolation"})
	f.triggers.catalog = []*model.NotificationTrigger{crisisTrigger()}

	result, err := f.svc.Evaluate(context.Background(), Event{
		Kind:      EventEntryAdded,
		ProfileID: f.profileID,
		Now:       evalNow,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Trend)
	assert.Equal(t, model.TrendDeclining, result.Trend.Label)
	assert.Equal(t, model.RiskHigh, result.Trend.Risk)

	require.NotNil(t, result.Alert)
	assert.Equal(t, model.SeverityModerate, result.Alert.Severity)
	require.Len(t, f.alerts.alerts, 1)

	require.Len(t, result.Scheduled, 1)
	assert.Equal(t, model.PriorityCritical, result.Scheduled[0].Priority)
	assert.Equal(t, "A moderate alert was raised. Your safety plan can help.", result.Scheduled[0].Body)

	// Accepted by the sink, flagged sent, counted by analytics.
	require.Len(t, result.Delivered, 1)
	assert.True(t, f.notifs.byID[result.Scheduled[0].ID].Sent)
	require.Len(t, f.sink.delivered, 1)

	// Moderate severity does not reach out to the emergency contact.
	assert.Empty(t, f.mailer.contacted)

	state := f.alerts.states[f.profileID]
	require.NotNil(t, state)
	assert.Equal(t, 1, state.HighRiskStreak)
}

func TestEvaluateSustainedCrisisNotifiesEmergencyContact(t *testing.T) {
	f := newFixture(t)
	f.triggers.catalog = []*model.NotificationTrigger{crisisTrigger()}

	f.addEntries(t, []int{6, 4, 3, 2}, nil)
	_, err := f.svc.Evaluate(context.Background(), Event{Kind: EventEntryAdded, ProfileID: f.profileID, Now: evalNow})
	require.NoError(t, err)
	require.Len(t, f.alerts.alerts, 1)

	// Another low entry the next day sustains high risk into severe.
	require.NoError(t, f.journal.Append(context.Background(), &model.MoodEntry{
		ID:        uuid.New(),
		ProfileID: f.profileID,
		EntryDate: evalNow.AddDate(0, 0, 1),
		Score:     2,
		CreatedAt: evalNow.AddDate(0, 0, 1),
	}))
	result, err := f.svc.Evaluate(context.Background(), Event{
		Kind:      EventEntryAdded,
		ProfileID: f.profileID,
		Now:       evalNow.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Alert)
	assert.Equal(t, model.SeveritySevere, result.Alert.Severity)
	assert.Equal(t, []string{"contact@example.com"}, f.mailer.contacted)
}

func TestEvaluateSameWindowTwiceRaisesOneAlert(t *testing.T) {
	f := newFixture(t)
	f.addEntries(t, []int{6, 4, 3, 2}, nil)

	_, err := f.svc.Evaluate(context.Background(), Event{Kind: EventEntryAdded, ProfileID: f.profileID, Now: evalNow})
	require.NoError(t, err)

	// Timer tick over the unchanged journal: the watermark makes the
	// detector a no-op.
	result, err := f.svc.Evaluate(context.Background(), Event{
		Kind:      EventTimerTick,
		ProfileID: f.profileID,
		Now:       evalNow.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Nil(t, result.Alert)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestEvaluateStableJournalSchedulesNothing(t *testing.T) {
	f := newFixture(t)
	f.addEntries(t, []int{8, 7, 8, 7}, nil)
	f.triggers.catalog = []*model.NotificationTrigger{crisisTrigger()}

	result, err := f.svc.Evaluate(context.Background(), Event{Kind: EventEntryAdded, ProfileID: f.profileID, Now: evalNow})
	require.NoError(t, err)

	assert.Nil(t, result.Alert)
	assert.Empty(t, result.Scheduled)
	assert.Empty(t, f.alerts.alerts)
	assert.Empty(t, f.notifs.byID)
}

func TestEvaluateStorageFailureAbortsWithNoStateChange(t *testing.T) {
	f := newFixture(t)
	f.addEntries(t, []int{6, 4, 3, 2}, nil)
	f.triggers.catalog = []*model.NotificationTrigger{crisisTrigger()}
	f.prefs.fail = true

	_, err := f.svc.Evaluate(context.Background(), Event{Kind: EventEntryAdded, ProfileID: f.profileID, Now: evalNow})

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrStorageUnavailable))
	assert.Empty(t, f.alerts.alerts)
	assert.Empty(t, f.alerts.states)
	assert.Empty(t, f.notifs.byID)
	assert.Empty(t, f.sink.delivered)

	// The next pass succeeds once storage recovers; nothing was lost.
	f.prefs.fail = false
	result, err := f.svc.Evaluate(context.Background(), Event{Kind: EventEntryAdded, ProfileID: f.profileID, Now: evalNow})
	require.NoError(t, err)
	require.NotNil(t, result.Alert)
	assert.Len(t, f.alerts.alerts, 1)
}

func TestEvaluateEmptyJournal(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Evaluate(context.Background(), Event{Kind: EventForeground, ProfileID: f.profileID, Now: evalNow})
	require.NoError(t, err)

	require.NotNil(t, result.Trend)
	assert.True(t, result.Trend.InsufficientData)
	assert.Nil(t, result.Alert)
	assert.Empty(t, result.Scheduled)
}

func TestCurrentTrendUsesCacheAfterPass(t *testing.T) {
	f := newFixture(t)
	f.addEntries(t, []int{6, 4, 3, 2}, nil)

	result, err := f.svc.Evaluate(context.Background(), Event{Kind: EventEntryAdded, ProfileID: f.profileID, Now: evalNow})
	require.NoError(t, err)

	cached, err := f.svc.CurrentTrend(context.Background(), f.profileID)
	require.NoError(t, err)
	assert.Same(t, result.Trend, cached)
}

func TestCurrentTrendRecomputesWhenCold(t *testing.T) {
	f := newFixture(t)
	f.addEntries(t, []int{8, 7, 8, 7}, nil)

	trend, err := f.svc.CurrentTrend(context.Background(), f.profileID)
	require.NoError(t, err)
	assert.Equal(t, model.TrendStable, trend.Label)
	assert.Equal(t, 4, trend.EntryCount)
}
