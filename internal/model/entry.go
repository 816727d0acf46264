package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinMoodScore = 1
	MaxMoodScore = 10
)

// MoodEntry is a single user-reported mood observation. Entries are
// immutable once appended; the journal only ever appends or deletes.
type MoodEntry struct {
	ID               uuid.UUID `json:"id" db:"id"`
	ProfileID        uuid.UUID `json:"profile_id" db:"profile_id"`
	EntryDate        time.Time `json:"entry_date" db:"entry_date"`
	Score            int       `json:"score" db:"score"`
	Note             string    `json:"note,omitempty" db:"note"`
	WarningSigns     []string  `json:"warning_signs,omitempty" db:"-"`
	CopingStrategies []string  `json:"coping_strategies,omitempty" db:"-"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// HasWarningSign reports whether the entry carries any warning-sign label.
func (e *MoodEntry) HasWarningSign() bool {
	return len(e.WarningSigns) > 0
}

// ValidScore reports whether the score is inside the accepted 1-10 range.
func (e *MoodEntry) ValidScore() bool {
	return e.Score >= MinMoodScore && e.Score <= MaxMoodScore
}
