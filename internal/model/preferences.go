package model

type Frequency string

const (
	FrequencyDaily      Frequency = "daily"
	FrequencyTwiceDaily Frequency = "twice_daily"
	FrequencyWeekly     Frequency = "weekly"
	FrequencyMonthly    Frequency = "monthly"
)

type DailyCheckInPrefs struct {
	Enabled   bool   `json:"enabled"`
	TimeOfDay string `json:"time_of_day"` // "HH:MM" 24h
}

type MoodReminderPrefs struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"` // daily, twice_daily or weekly
	Times     []string  `json:"times"`     // "HH:MM" entries
}

type CrisisSupportPrefs struct {
	Enabled            bool `json:"enabled"`
	ProactiveReminders bool `json:"proactive_reminders"`
}

type SafetyPlanReviewPrefs struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"` // weekly or monthly
}

type EncouragementPrefs struct {
	Enabled   bool      `json:"enabled"`
	Frequency Frequency `json:"frequency"` // daily or weekly
}

// NotificationPreferences is per-profile configuration read by the trigger
// engine and scheduler on every evaluation pass. Mutated only through an
// explicit update.
type NotificationPreferences struct {
	Enabled          bool                  `json:"enabled"`
	DailyCheckIn     DailyCheckInPrefs     `json:"daily_check_in"`
	MoodReminder     MoodReminderPrefs     `json:"mood_reminder"`
	CrisisSupport    CrisisSupportPrefs    `json:"crisis_support"`
	SafetyPlanReview SafetyPlanReviewPrefs `json:"safety_plan_review"`
	Encouragement    EncouragementPrefs    `json:"encouragement"`
}

// DefaultPreferences are used when the store has nothing saved yet.
func DefaultPreferences() *NotificationPreferences {
	return &NotificationPreferences{
		Enabled: true,
		DailyCheckIn: DailyCheckInPrefs{
			Enabled:   true,
			TimeOfDay: "09:00",
		},
		MoodReminder: MoodReminderPrefs{
			Enabled:   true,
			Frequency: FrequencyDaily,
			Times:     []string{"20:00"},
		},
		CrisisSupport: CrisisSupportPrefs{
			Enabled:            true,
			ProactiveReminders: true,
		},
		SafetyPlanReview: SafetyPlanReviewPrefs{
			Enabled:   true,
			Frequency: FrequencyWeekly,
		},
		Encouragement: EncouragementPrefs{
			Enabled:   true,
			Frequency: FrequencyDaily,
		},
	}
}

// CategoryEnabled reports whether the preference category owning the given
// notification type is switched on. The master flag gates everything.
func (p *NotificationPreferences) CategoryEnabled(t NotificationType) bool {
	if !p.Enabled {
		return false
	}
	switch t {
	case NotificationDailyCheckIn:
		return p.DailyCheckIn.Enabled
	case NotificationMoodReminder, NotificationInactivity:
		return p.MoodReminder.Enabled
	case NotificationCrisisSupport:
		return p.CrisisSupport.Enabled
	case NotificationSafetyPlanReview:
		return p.SafetyPlanReview.Enabled
	case NotificationEncouragement:
		return p.Encouragement.Enabled
	}
	return false
}

// CategoryFrequency returns the configured frequency for the category
// owning the notification type; types without a frequency knob fall back
// to daily spacing.
func (p *NotificationPreferences) CategoryFrequency(t NotificationType) Frequency {
	switch t {
	case NotificationMoodReminder, NotificationInactivity:
		return p.MoodReminder.Frequency
	case NotificationSafetyPlanReview:
		return p.SafetyPlanReview.Frequency
	case NotificationEncouragement:
		return p.Encouragement.Frequency
	}
	return FrequencyDaily
}
