package trend

import (
	"fmt"
	"sort"
	"time"

	"github.com/havenapp/mood-engine/internal/config"
	"github.com/havenapp/mood-engine/internal/model"
)

const warningSignLookback = 7 * 24 * time.Hour

// Analyzer reduces a chronological window of mood entries into a trend
// classification. It is a pure computation: identical windows always yield
// identical trends, and nothing outside the window is consulted.
type Analyzer struct {
	cfg config.EngineConfig
}

func NewAnalyzer(cfg config.EngineConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze classifies the window. The window must be ordered oldest first;
// an empty window is valid and yields an insufficient-data trend.
func (a *Analyzer) Analyze(window []*model.MoodEntry) *model.MoodTrend {
	if len(window) == 0 {
		return &model.MoodTrend{
			Label:            model.TrendStable,
			Risk:             model.RiskLow,
			InsufficientData: true,
			Insights:         []string{"no mood entries recorded yet"},
		}
	}

	t := &model.MoodTrend{
		AverageMood: meanScore(window),
		EntryCount:  len(window),
	}

	t.Label = a.classifyLabel(window, t)
	t.Risk = a.classifyRisk(window, t)
	a.collectInsights(window, t)

	return t
}

func (a *Analyzer) classifyLabel(window []*model.MoodEntry, t *model.MoodTrend) model.TrendLabel {
	if len(window) < a.cfg.MinWindowSize {
		t.InsufficientData = true
		t.Insights = append(t.Insights, fmt.Sprintf(
			"only %d entries available; at least %d needed for a trend", len(window), a.cfg.MinWindowSize))
		return model.TrendStable
	}

	half := len(window) / 2
	firstMean := meanScore(window[:half])
	secondMean := meanScore(window[half:])

	switch {
	case secondMean-firstMean >= a.cfg.TrendEpsilon:
		return model.TrendImproving
	case firstMean-secondMean >= a.cfg.TrendEpsilon:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func (a *Analyzer) classifyRisk(window []*model.MoodEntry, t *model.MoodTrend) model.RiskLevel {
	var risk model.RiskLevel
	switch {
	case t.AverageMood <= a.cfg.HighRiskAverage:
		risk = model.RiskHigh
	case t.AverageMood <= a.cfg.ModerateRiskAverage:
		risk = model.RiskModerate
	default:
		risk = model.RiskLow
	}

	if t.Label == model.TrendDeclining {
		risk = risk.Escalate()
	}

	if window[len(window)-1].HasWarningSign() {
		risk = risk.Escalate()
	}

	return risk
}

func (a *Analyzer) collectInsights(window []*model.MoodEntry, t *model.MoodTrend) {
	switch t.Label {
	case model.TrendImproving:
		t.Insights = append(t.Insights, "recent mood is trending upward")
	case model.TrendDeclining:
		t.Insights = append(t.Insights, "recent mood is trending downward")
	}

	if run := trailingLowRun(window, a.cfg.LowMoodScore); run >= 2 {
		t.Insights = append(t.Insights, fmt.Sprintf(
			"%d consecutive entries with mood <= %d", run, a.cfg.LowMoodScore))
	}

	latest := window[len(window)-1]
	if latest.HasWarningSign() {
		t.Insights = append(t.Insights, fmt.Sprintf(
			"warning sign %q reported in the latest entry", latest.WarningSigns[0]))
	}

	// Repeated signs are counted relative to the newest entry in the
	// window, not the wall clock, so the result stays a pure function of
	// the input.
	cutoff := latest.CreatedAt.Add(-warningSignLookback)
	counts := signCounts(window, cutoff)
	signs := make([]string, 0, len(counts))
	for sign := range counts {
		signs = append(signs, sign)
	}
	sort.Strings(signs)
	for _, sign := range signs {
		if counts[sign] >= 2 {
			t.Insights = append(t.Insights, fmt.Sprintf(
				"warning sign %q reported %d times this week", sign, counts[sign]))
		}
	}
}

func meanScore(entries []*model.MoodEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum int
	for _, e := range entries {
		sum += e.Score
	}
	return float64(sum) / float64(len(entries))
}

func trailingLowRun(entries []*model.MoodEntry, lowScore int) int {
	run := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Score > lowScore {
			break
		}
		run++
	}
	return run
}

func signCounts(entries []*model.MoodEntry, cutoff time.Time) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.CreatedAt.Before(cutoff) {
			continue
		}
		for _, sign := range e.WarningSigns {
			counts[sign]++
		}
	}
	return counts
}
