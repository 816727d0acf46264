package model

import (
	"github.com/google/uuid"
)

type TriggerKind string

const (
	TriggerTimeBased   TriggerKind = "time_based"
	TriggerMoodPattern TriggerKind = "mood_pattern"
	TriggerInactivity  TriggerKind = "inactivity"
	TriggerCrisisLevel TriggerKind = "crisis_level"
)

// TriggerConditions holds the per-kind condition fields. Which fields are
// required depends on the trigger kind; catalog load validates the pairing.
type TriggerConditions struct {
	// TimeOfDay in "HH:MM" 24h form, for time_based triggers.
	TimeOfDay string `json:"time_of_day,omitempty" db:"time_of_day"`
	// DaysInactive threshold, for inactivity triggers.
	DaysInactive int `json:"days_inactive,omitempty" db:"days_inactive"`
	// MoodBelow fires when the window average falls under it (0 = unset).
	MoodBelow float64 `json:"mood_below,omitempty" db:"mood_below"`
	// TrendPattern to match, for mood_pattern triggers.
	TrendPattern TrendLabel `json:"trend_pattern,omitempty" db:"trend_pattern"`
	// MinSeverity threshold, for crisis_level triggers.
	MinSeverity AlertSeverity `json:"min_severity,omitempty" db:"min_severity"`
}

// NotificationTrigger is a catalog rule that proposes a notification when
// its condition holds. Catalog order is significant: it breaks priority
// ties during scheduling.
type NotificationTrigger struct {
	ID            uuid.UUID            `json:"id" db:"id"`
	Kind          TriggerKind          `json:"kind" db:"kind"`
	Type          NotificationType     `json:"type" db:"type"`
	Conditions    TriggerConditions    `json:"conditions" db:"-"`
	TitleTemplate string               `json:"title_template" db:"title_template"`
	BodyTemplate  string               `json:"body_template" db:"body_template"`
	Priority      NotificationPriority `json:"priority" db:"priority"`
	Enabled       bool                 `json:"enabled" db:"enabled"`
	Position      int                  `json:"position" db:"position"`
}
