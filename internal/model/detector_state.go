package model

import (
	"time"

	"github.com/google/uuid"
)

// DetectorState is the crisis detector's per-profile memory: which entry
// was evaluated last (so an entry is never evaluated twice) and how many
// consecutive cycles have come back high risk.
type DetectorState struct {
	ProfileID            uuid.UUID `json:"profile_id" db:"profile_id"`
	LastEvaluatedEntryID uuid.UUID `json:"last_evaluated_entry_id" db:"last_evaluated_entry_id"`
	HighRiskStreak       int       `json:"high_risk_streak" db:"high_risk_streak"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
