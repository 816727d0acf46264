package model

import (
	"time"

	"github.com/google/uuid"
)

// TypeStats is the per-type sent/opened breakdown.
type TypeStats struct {
	Sent   int64 `json:"sent"`
	Opened int64 `json:"opened"`
}

// PendingFollowUp tracks an opened notification awaiting a journal entry
// inside the effectiveness window. Resolved or expired incrementally.
type PendingFollowUp struct {
	NotificationID uuid.UUID `json:"notification_id"`
	OpenedAt       time.Time `json:"opened_at"`
	Deadline       time.Time `json:"deadline"`
}

// NotificationAnalytics holds the aggregate engagement counters. Updated
// incrementally by the tracker; never recomputed from full history except
// for explicit integrity repair.
type NotificationAnalytics struct {
	TotalSent      int64                          `json:"total_sent"`
	TotalOpened    int64                          `json:"total_opened"`
	ByType         map[NotificationType]TypeStats `json:"by_type"`
	OpensEngaged   int64                          `json:"opens_engaged"`
	OpensResolved  int64                          `json:"opens_resolved"`
	PendingFollows []PendingFollowUp              `json:"pending_follows,omitempty"`
	UpdatedAt      time.Time                      `json:"updated_at"`
}

// NewNotificationAnalytics returns zeroed counters with the type map ready.
func NewNotificationAnalytics() *NotificationAnalytics {
	return &NotificationAnalytics{
		ByType: make(map[NotificationType]TypeStats),
	}
}

// OpenRate is opened/sent, 0 when nothing has been sent.
func (a *NotificationAnalytics) OpenRate() float64 {
	if a.TotalSent == 0 {
		return 0
	}
	return float64(a.TotalOpened) / float64(a.TotalSent)
}

// EffectivenessScore is the fraction of resolved opens that were followed
// by a new journal entry within the follow-up window.
func (a *NotificationAnalytics) EffectivenessScore() float64 {
	if a.OpensResolved == 0 {
		return 0
	}
	return float64(a.OpensEngaged) / float64(a.OpensResolved)
}
