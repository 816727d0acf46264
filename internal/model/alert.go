package model

import (
	"time"

	"github.com/google/uuid"
)

type AlertSeverity string

const (
	SeverityMild     AlertSeverity = "mild"
	SeverityModerate AlertSeverity = "moderate"
	SeveritySevere   AlertSeverity = "severe"
)

var severityRank = map[AlertSeverity]int{
	SeverityMild:     0,
	SeverityModerate: 1,
	SeveritySevere:   2,
}

// Rank returns the ordering position of the severity (mild < moderate < severe).
func (s AlertSeverity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at or above the given threshold severity.
func (s AlertSeverity) AtLeast(threshold AlertSeverity) bool {
	return s.Rank() >= threshold.Rank()
}

// CrisisAlert is a discrete event raised when risk/pattern conditions cross
// a severity threshold. Alerts are immutable after creation and retained in
// the alert log for history.
type CrisisAlert struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	ProfileID          uuid.UUID     `json:"profile_id" db:"profile_id"`
	Severity           AlertSeverity `json:"severity" db:"severity"`
	TriggerReasons     []string      `json:"trigger_reasons" db:"-"`
	RecommendedActions []string      `json:"recommended_actions" db:"-"`
	NotifyContacts     bool          `json:"notify_contacts" db:"notify_contacts"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
}
