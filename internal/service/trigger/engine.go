package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
)

// Facts are the inputs one evaluation pass feeds every trigger. They are
// assembled by the caller; the engine itself never reads the clock or any
// store, which keeps rule evaluation unit-testable with synthetic facts.
type Facts struct {
	ProfileID uuid.UUID
	Now       time.Time
	Trend     *model.MoodTrend
	// Alert is the latest crisis alert on record, nil when none exists.
	Alert *model.CrisisAlert
	// DaysSinceLastEntry is -1 when the journal is empty.
	DaysSinceLastEntry int
	Prefs              *model.NotificationPreferences
	// LastFired maps trigger id to the last time that trigger produced a
	// notification. Used for fired-today and stale-alert guards.
	LastFired map[uuid.UUID]time.Time
}

// Engine evaluates the trigger catalog against current facts. Each rule is
// judged independently; one pass may yield several candidate drafts.
type Engine struct {
	cfg    config.EngineConfig
	logger *zerolog.Logger
}

func NewEngine(cfg config.EngineConfig, logger *zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Evaluate walks the catalog in position order and returns the candidate
// notifications whose conditions hold. Disabled triggers and triggers whose
// preference category is off are skipped without trace.
func (e *Engine) Evaluate(catalog []*model.NotificationTrigger, facts Facts) []*model.SmartNotification {
	var drafts []*model.SmartNotification
	for _, t := range catalog {
		if !t.Enabled || !facts.Prefs.CategoryEnabled(t.Type) {
			continue
		}
		if t.Type == model.NotificationCrisisSupport &&
			t.Kind != model.TriggerCrisisLevel &&
			!facts.Prefs.CrisisSupport.ProactiveReminders {
			continue
		}

		fireAt, ok := e.conditionHolds(t, facts)
		if !ok {
			continue
		}

		drafts = append(drafts, e.draft(t, facts, fireAt))
	}
	return drafts
}

// conditionHolds returns the fire time for the trigger when its condition
// is met. Non-time-based triggers fire at evaluation time.
func (e *Engine) conditionHolds(t *model.NotificationTrigger, facts Facts) (time.Time, bool) {
	switch t.Kind {
	case model.TriggerTimeBased:
		return e.timeConditionHolds(t, facts)

	case model.TriggerMoodPattern:
		if facts.Trend == nil || facts.Trend.InsufficientData {
			return time.Time{}, false
		}
		if facts.Trend.Label != t.Conditions.TrendPattern {
			return time.Time{}, false
		}
		if t.Conditions.MoodBelow > 0 && facts.Trend.AverageMood >= t.Conditions.MoodBelow {
			return time.Time{}, false
		}
		return facts.Now, true

	case model.TriggerInactivity:
		if facts.DaysSinceLastEntry < 0 || facts.DaysSinceLastEntry < t.Conditions.DaysInactive {
			return time.Time{}, false
		}
		return facts.Now, true

	case model.TriggerCrisisLevel:
		if facts.Alert == nil || !facts.Alert.Severity.AtLeast(t.Conditions.MinSeverity) {
			return time.Time{}, false
		}
		// Fire once per alert: a trigger that already responded to this
		// alert stays quiet until a newer one lands.
		if last, ok := facts.LastFired[t.ID]; ok && !last.Before(facts.Alert.CreatedAt) {
			return time.Time{}, false
		}
		return facts.Now, true
	}

	return time.Time{}, false
}

func (e *Engine) timeConditionHolds(t *model.NotificationTrigger, facts Facts) (time.Time, bool) {
	target, err := timeOfDayOn(facts.Now, t.Conditions.TimeOfDay)
	if err != nil {
		// Catalog load validates this; a bad value slipping through is a
		// skip, not a failure of the whole pass.
		e.logger.Warn().
			Err(err).
			Str("trigger_id", t.ID.String()).
			Msg("unparseable time-of-day, skipping trigger")
		return time.Time{}, false
	}

	delta := facts.Now.Sub(target)
	if delta < -e.cfg.TimeTolerance || delta > e.cfg.TimeTolerance {
		return time.Time{}, false
	}

	if last, ok := facts.LastFired[t.ID]; ok && sameDay(last, facts.Now) {
		return time.Time{}, false
	}
	return target, true
}

func (e *Engine) draft(t *model.NotificationTrigger, facts Facts, fireAt time.Time) *model.SmartNotification {
	priority := t.Priority
	if t.Kind == model.TriggerCrisisLevel {
		priority = model.PriorityCritical
	}

	payload := &model.NotificationPayload{
		Trend:          facts.Trend,
		DaysSinceEntry: facts.DaysSinceLastEntry,
	}
	if facts.Trend != nil {
		payload.Risk = facts.Trend.Risk
	}
	if t.Kind == model.TriggerCrisisLevel && facts.Alert != nil {
		payload.AlertSeverity = facts.Alert.Severity
		payload.SuggestedActions = facts.Alert.RecommendedActions
	}

	return &model.SmartNotification{
		ID:          uuid.New(),
		ProfileID:   facts.ProfileID,
		Type:        t.Type,
		Title:       render(t.TitleTemplate, facts),
		Body:        render(t.BodyTemplate, facts),
		Priority:    priority,
		ScheduledAt: fireAt,
		Payload:     payload,
		Sent:        false,
		TriggerID:   t.ID,
		CreatedAt:   facts.Now,
	}
}

// render substitutes {placeholder} tokens in a message template with the
// current facts.
func render(template string, facts Facts) string {
	pairs := []string{
		"{days_inactive}", strconv.Itoa(facts.DaysSinceLastEntry),
	}
	if facts.Trend != nil {
		pairs = append(pairs,
			"{avg_mood}", fmt.Sprintf("%.1f", facts.Trend.AverageMood),
			"{trend}", string(facts.Trend.Label),
			"{risk}", string(facts.Trend.Risk),
		)
	}
	if facts.Alert != nil {
		pairs = append(pairs, "{severity}", string(facts.Alert.Severity))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func timeOfDayOn(day time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
