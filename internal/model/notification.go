package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationDailyCheckIn     NotificationType = "daily_check_in"
	NotificationMoodReminder     NotificationType = "mood_reminder"
	NotificationCrisisSupport    NotificationType = "crisis_support"
	NotificationSafetyPlanReview NotificationType = "safety_plan_review"
	NotificationEncouragement    NotificationType = "encouragement"
	NotificationInactivity       NotificationType = "inactivity_nudge"
)

type NotificationPriority string

const (
	PriorityLow      NotificationPriority = "low"
	PriorityNormal   NotificationPriority = "normal"
	PriorityHigh     NotificationPriority = "high"
	PriorityCritical NotificationPriority = "critical"
)

var priorityRank = map[NotificationPriority]int{
	PriorityLow:      0,
	PriorityNormal:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Rank returns the ordering position of the priority (low < normal < high < critical).
func (p NotificationPriority) Rank() int {
	return priorityRank[p]
}

// NotificationPayload snapshots the facts a notification was built from,
// kept for analytics and audit.
type NotificationPayload struct {
	Trend            *MoodTrend    `json:"trend,omitempty"`
	Risk             RiskLevel     `json:"risk,omitempty"`
	AlertSeverity    AlertSeverity `json:"alert_severity,omitempty"`
	SuggestedActions []string      `json:"suggested_actions,omitempty"`
	DaysSinceEntry   int           `json:"days_since_entry,omitempty"`
}

// SmartNotification is a finalized (or pending-retry) notification record.
// Only the Sent flag is ever mutated after creation, and only on confirmed
// delivery; records are retained for analytics rather than deleted.
type SmartNotification struct {
	ID          uuid.UUID            `json:"id" db:"id"`
	ProfileID   uuid.UUID            `json:"profile_id" db:"profile_id"`
	Type        NotificationType     `json:"type" db:"type"`
	Title       string               `json:"title" db:"title"`
	Body        string               `json:"body" db:"body"`
	Priority    NotificationPriority `json:"priority" db:"priority"`
	ScheduledAt time.Time            `json:"scheduled_at" db:"scheduled_at"`
	Payload     *NotificationPayload `json:"payload,omitempty" db:"-"`
	Sent        bool                 `json:"sent" db:"sent"`
	TriggerID   uuid.UUID            `json:"trigger_id" db:"trigger_id"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
}
