package worker

import (
	"context"
	"time"

	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/internal/service/evaluation"
	"github.com/havenapp/mood-engine/pkg/logger"
)

// Ticker injects periodic timer-tick events into the evaluation service.
// Time-based and inactivity triggers only ever see these injected events;
// the core pipeline itself never watches the clock.
type Ticker struct {
	profiles  repository.ProfileRepository
	evaluator *evaluation.Service
	interval  time.Duration
	logger    *logger.Logger
}

func NewTicker(
	profiles repository.ProfileRepository,
	evaluator *evaluation.Service,
	interval time.Duration,
	logger *logger.Logger,
) *Ticker {
	if interval <= 0 {
		panic("interval must be greater than 0")
	}

	return &Ticker{
		profiles:  profiles,
		evaluator: evaluator,
		interval:  interval,
		logger:    logger,
	}
}

func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("Starting evaluation ticker")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Shutting down evaluation ticker")
			return
		case now := <-ticker.C:
			t.tick(ctx, now)
		}
	}
}

func (t *Ticker) tick(ctx context.Context, now time.Time) {
	profiles, err := t.profiles.List(ctx)
	if err != nil {
		t.logger.Error(err, "Failed to list profiles for tick")
		return
	}

	for _, p := range profiles {
		_, err := t.evaluator.Evaluate(ctx, evaluation.Event{
			Kind:      evaluation.EventTimerTick,
			ProfileID: p.ID,
			Now:       now,
		})
		if err != nil {
			t.logger.Error(err, "Tick evaluation failed",
				"profile_id", p.ID.String())
		}
	}
}
