package model

type TrendLabel string

const (
	TrendImproving TrendLabel = "improving"
	TrendDeclining TrendLabel = "declining"
	TrendStable    TrendLabel = "stable"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskModerate: 1,
	RiskHigh:     2,
}

// Rank returns the ordering position of the risk level (low < moderate < high).
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// Escalate returns the next risk level up, capped at high.
func (r RiskLevel) Escalate() RiskLevel {
	switch r {
	case RiskLow:
		return RiskModerate
	case RiskModerate:
		return RiskHigh
	default:
		return RiskHigh
	}
}

// MoodTrend is the derived classification of a window of mood entries.
// It is recomputed on demand and never persisted independently; identical
// input windows always produce identical trends.
type MoodTrend struct {
	AverageMood      float64    `json:"average_mood"`
	Label            TrendLabel `json:"label"`
	Risk             RiskLevel  `json:"risk"`
	Insights         []string   `json:"insights,omitempty"`
	EntryCount       int        `json:"entry_count"`
	InsufficientData bool       `json:"insufficient_data"`
}
