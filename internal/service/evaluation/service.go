package evaluation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/internal/service/analytics"
	"github.com/havenapp/mood-engine/internal/service/crisis"
	"github.com/havenapp/mood-engine/internal/service/scheduler"
	"github.com/havenapp/mood-engine/internal/service/trend"
	"github.com/havenapp/mood-engine/internal/service/trigger"
	"github.com/havenapp/mood-engine/pkg/delivery"
	"github.com/havenapp/mood-engine/pkg/metrics"
)

type EventKind string

const (
	EventEntryAdded EventKind = "entry_added"
	EventTimerTick  EventKind = "timer_tick"
	EventForeground EventKind = "foreground"
)

// Event is one discrete evaluation request. Now is the injected clock; the
// pipeline never reads wall time itself, which keeps passes replayable in
// tests.
type Event struct {
	Kind      EventKind
	ProfileID uuid.UUID
	Now       time.Time
}

// Result reports what one pass computed and delivered.
type Result struct {
	Trend     *model.MoodTrend
	Alert     *model.CrisisAlert
	Scheduled []*model.SmartNotification
	Delivered []uuid.UUID
}

// Service runs the evaluation pipeline: analyze -> detect -> trigger ->
// schedule -> dispatch. Passes on the same profile are serialized with a
// per-profile mutex because the watermark and de-duplication logic assume a
// linear history. The lock is released before the sink is called.
type Service struct {
	cfg config.EngineConfig

	journalRepo repository.JournalRepository
	alertRepo   repository.AlertRepository
	prefsRepo   repository.PreferencesRepository
	triggerRepo repository.TriggerRepository
	notifRepo   repository.NotificationRepository
	profileRepo repository.ProfileRepository

	analyzer *trend.Analyzer
	detector *crisis.Detector
	loader   *trigger.CatalogLoader
	engine   *trigger.Engine
	sched    *scheduler.Scheduler
	tracker  *analytics.Tracker
	mailer   delivery.EmergencyMailer

	trendCache *gocache.Cache
	locks      sync.Map

	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

type Deps struct {
	JournalRepo repository.JournalRepository
	AlertRepo   repository.AlertRepository
	PrefsRepo   repository.PreferencesRepository
	TriggerRepo repository.TriggerRepository
	NotifRepo   repository.NotificationRepository
	ProfileRepo repository.ProfileRepository
	Scheduler   *scheduler.Scheduler
	Tracker     *analytics.Tracker
	Mailer      delivery.EmergencyMailer
	Metrics     *metrics.Metrics
	Logger      *zerolog.Logger
}

func NewService(cfg config.EngineConfig, deps Deps) *Service {
	return &Service{
		cfg:         cfg,
		journalRepo: deps.JournalRepo,
		alertRepo:   deps.AlertRepo,
		prefsRepo:   deps.PrefsRepo,
		triggerRepo: deps.TriggerRepo,
		notifRepo:   deps.NotifRepo,
		profileRepo: deps.ProfileRepo,
		analyzer:    trend.NewAnalyzer(cfg),
		detector:    crisis.NewDetector(cfg),
		loader:      trigger.NewCatalogLoader(deps.Logger),
		engine:      trigger.NewEngine(cfg, deps.Logger),
		sched:       deps.Scheduler,
		tracker:     deps.Tracker,
		mailer:      deps.Mailer,
		trendCache:  gocache.New(time.Hour, 10*time.Minute),
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Evaluate runs one pass. Storage failures abort the pass cleanly with no
// partial persisted state; the next triggering event retries it.
func (s *Service) Evaluate(ctx context.Context, event Event) (*Result, error) {
	timer := prometheus.NewTimer(s.metrics.EvaluationLatency)
	defer timer.ObserveDuration()
	s.metrics.EvaluationPasses.WithLabelValues(string(event.Kind)).Inc()

	lock := s.profileLock(event.ProfileID)
	lock.Lock()

	result, alert, err := s.evaluateLocked(ctx, event)
	lock.Unlock()
	if err != nil {
		s.metrics.EvaluationAborted.Inc()
		return nil, err
	}

	// Dispatch happens outside the lock so a slow or blocking sink never
	// delays the next pass on this profile.
	if len(result.Scheduled) > 0 {
		result.Delivered = s.sched.Dispatch(ctx, result.Scheduled)
		for _, id := range result.Delivered {
			if err := s.tracker.DeliveryConfirmed(ctx, id, event.Now); err != nil {
				s.logger.Error().
					Err(err).
					Str("notification_id", id.String()).
					Msg("failed to record delivery confirmation")
			}
		}
	}

	if alert != nil && alert.NotifyContacts {
		s.notifyEmergencyContact(ctx, event.ProfileID, alert)
	}

	if event.Kind == EventEntryAdded {
		if err := s.tracker.EntryLogged(ctx, event.ProfileID, event.Now); err != nil {
			s.logger.Error().Err(err).Msg("failed to resolve analytics follow-ups")
		}
	}

	return result, nil
}

// evaluateLocked is the pure-then-finalize section. Everything up to the
// persistence calls at the bottom is in-memory, so abandoning the pass
// early leaves no observable state change.
func (s *Service) evaluateLocked(ctx context.Context, event Event) (*Result, *model.CrisisAlert, error) {
	prefs, err := s.prefsRepo.Load(ctx, event.ProfileID)
	if err != nil {
		return nil, nil, err
	}

	window, err := s.journalRepo.ListRecent(ctx, event.ProfileID, s.cfg.WindowSize)
	if err != nil {
		return nil, nil, err
	}

	moodTrend := s.analyzer.Analyze(window)
	s.trendCache.Set(event.ProfileID.String(), moodTrend, gocache.DefaultExpiration)

	state, err := s.alertRepo.GetDetectorState(ctx, event.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	alert, nextState := s.detector.Detect(moodTrend, window, state, event.Now)

	latestAlert := alert
	if latestAlert == nil {
		latestAlert, err = s.alertRepo.Latest(ctx, event.ProfileID)
		if err != nil {
			return nil, nil, err
		}
	}

	rawCatalog, err := s.triggerRepo.List(ctx, event.ProfileID)
	if err != nil {
		return nil, nil, err
	}
	catalog, _ := s.loader.Load(rawCatalog)

	lastFired, err := s.lastFiredIndex(ctx, event.ProfileID, catalog)
	if err != nil {
		return nil, nil, err
	}

	facts := trigger.Facts{
		ProfileID:          event.ProfileID,
		Now:                event.Now,
		Trend:              moodTrend,
		Alert:              latestAlert,
		DaysSinceLastEntry: daysSince(window, event.Now),
		Prefs:              prefs,
		LastFired:          lastFired,
	}
	drafts := s.engine.Evaluate(catalog, facts)
	for _, d := range drafts {
		s.metrics.DraftsProduced.WithLabelValues(string(d.Type)).Inc()
	}

	// Finalize: persist the alert, the advanced watermark and the planned
	// notifications. This is the first observable state change of the pass.
	if alert != nil {
		if err := s.alertRepo.Append(ctx, alert); err != nil {
			return nil, nil, err
		}
		s.metrics.CrisisAlerts.WithLabelValues(string(alert.Severity)).Inc()
	}
	if nextState != state {
		if err := s.alertRepo.SaveDetectorState(ctx, nextState); err != nil {
			return nil, nil, err
		}
	}

	scheduled, err := s.sched.Plan(ctx, drafts, prefs, event.Now)
	if err != nil {
		return nil, nil, err
	}

	return &Result{
		Trend:     moodTrend,
		Alert:     alert,
		Scheduled: scheduled,
	}, alert, nil
}

// CurrentTrend returns the most recently computed trend for the profile,
// recomputing from the journal when the cache is cold.
func (s *Service) CurrentTrend(ctx context.Context, profileID uuid.UUID) (*model.MoodTrend, error) {
	if cached, found := s.trendCache.Get(profileID.String()); found {
		if t, ok := cached.(*model.MoodTrend); ok {
			return t, nil
		}
	}

	window, err := s.journalRepo.ListRecent(ctx, profileID, s.cfg.WindowSize)
	if err != nil {
		return nil, err
	}
	t := s.analyzer.Analyze(window)
	s.trendCache.Set(profileID.String(), t, gocache.DefaultExpiration)
	return t, nil
}

func (s *Service) lastFiredIndex(ctx context.Context, profileID uuid.UUID, catalog []*model.NotificationTrigger) (map[uuid.UUID]time.Time, error) {
	index := make(map[uuid.UUID]time.Time)
	for _, t := range catalog {
		if t.Kind != model.TriggerTimeBased && t.Kind != model.TriggerCrisisLevel {
			continue
		}
		last, err := s.notifRepo.LastForTrigger(ctx, profileID, t.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			index[t.ID] = last.ScheduledAt
		}
	}
	return index, nil
}

func (s *Service) notifyEmergencyContact(ctx context.Context, profileID uuid.UUID, alert *model.CrisisAlert) {
	if s.mailer == nil {
		return
	}

	profile, err := s.profileRepo.Get(ctx, profileID)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load profile for emergency contact")
		return
	}
	if profile.EmergencyEmail == "" {
		return
	}

	if err := s.mailer.NotifyContact(ctx, profile.EmergencyEmail, alert); err != nil {
		s.logger.Error().
			Err(err).
			Str("alert_id", alert.ID.String()).
			Msg("failed to notify emergency contact")
	}
}

func (s *Service) profileLock(profileID uuid.UUID) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(profileID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func daysSince(window []*model.MoodEntry, now time.Time) int {
	if len(window) == 0 {
		return -1
	}
	latest := window[len(window)-1]
	days := int(now.Sub(latest.CreatedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
