package crisis

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
)

// recommendedActions is the static severity -> action lookup.
var recommendedActions = map[model.AlertSeverity][]string{
	model.SeverityMild: {
		"review your coping strategies",
		"consider reaching out to a support contact",
	},
	model.SeverityModerate: {
		"review your safety plan",
		"reach out to a trusted support contact",
		"use a coping strategy that has helped before",
	},
	model.SeveritySevere: {
		"contact a crisis line now",
		"review your safety plan",
		"let your emergency contact know how you are doing",
	},
}

// RecommendedActions returns the static action list for a severity.
func RecommendedActions(severity model.AlertSeverity) []string {
	actions := recommendedActions[severity]
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// Detector decides whether a window's trend crosses an alert threshold.
// Detect is pure: it returns the would-be alert and the advanced detector
// state without touching storage, so a pass can be abandoned with no
// observable effect. The caller persists both at finalize time.
type Detector struct {
	cfg config.EngineConfig
}

func NewDetector(cfg config.EngineConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect evaluates the latest trend against the detector state. The
// watermark guarantees each journal entry is evaluated exactly once:
// when the newest entry id matches the watermark the call is a no-op and
// the unchanged state is returned, so re-running with identical input can
// never produce a duplicate alert.
func (d *Detector) Detect(trend *model.MoodTrend, window []*model.MoodEntry, state *model.DetectorState, now time.Time) (*model.CrisisAlert, *model.DetectorState) {
	if len(window) == 0 {
		return nil, state
	}

	latest := window[len(window)-1]
	if state.LastEvaluatedEntryID == latest.ID {
		return nil, state
	}

	next := &model.DetectorState{
		ProfileID:            state.ProfileID,
		LastEvaluatedEntryID: latest.ID,
		UpdatedAt:            now,
	}
	if trend.Risk == model.RiskHigh {
		next.HighRiskStreak = state.HighRiskStreak + 1
	}

	severity, reasons := d.classify(trend, latest, next.HighRiskStreak)
	if severity == "" {
		return nil, next
	}

	alert := &model.CrisisAlert{
		ID:                 uuid.New(),
		ProfileID:          state.ProfileID,
		Severity:           severity,
		TriggerReasons:     reasons,
		RecommendedActions: RecommendedActions(severity),
		NotifyContacts:     severity == model.SeveritySevere,
		CreatedAt:          now,
	}
	return alert, next
}

func (d *Detector) classify(trend *model.MoodTrend, latest *model.MoodEntry, streak int) (model.AlertSeverity, []string) {
	reasons := append([]string{}, trend.Insights...)

	switch {
	case streak >= d.cfg.SustainedHighCycles:
		reasons = append(reasons, fmt.Sprintf(
			"high risk sustained across %d evaluation cycles", streak))
		return model.SeveritySevere, reasons

	case trend.Risk == model.RiskHigh:
		reasons = append(reasons, "risk level reached high")
		return model.SeverityModerate, reasons

	case trend.Risk == model.RiskModerate && latest.HasWarningSign():
		reasons = append(reasons, fmt.Sprintf(
			"moderate risk combined with warning sign %q", latest.WarningSigns[0]))
		return model.SeverityMild, reasons
	}

	return "", nil
}
