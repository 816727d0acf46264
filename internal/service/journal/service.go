package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

// Service is the validating boundary in front of the journal store.
// Malformed entries are rejected here so the analysis stages only ever see
// valid input.
type Service struct {
	repo repository.JournalRepository
}

func NewService(repo repository.JournalRepository) *Service {
	return &Service{repo: repo}
}

type AppendRequest struct {
	ProfileID        uuid.UUID
	EntryDate        time.Time
	Score            int
	Note             string
	WarningSigns     []string
	CopingStrategies []string
}

func (s *Service) Append(ctx context.Context, req *AppendRequest) (*model.MoodEntry, error) {
	if req.ProfileID == uuid.Nil {
		return nil, apperrors.InvalidEntry("profile id is required")
	}
	if req.Score < model.MinMoodScore || req.Score > model.MaxMoodScore {
		return nil, apperrors.InvalidEntry(fmt.Sprintf(
			"mood score must be between %d and %d", model.MinMoodScore, model.MaxMoodScore))
	}
	if req.EntryDate.IsZero() {
		return nil, apperrors.InvalidEntry("entry date is required")
	}

	entry := &model.MoodEntry{
		ID:               uuid.New(),
		ProfileID:        req.ProfileID,
		EntryDate:        req.EntryDate,
		Score:            req.Score,
		Note:             req.Note,
		WarningSigns:     req.WarningSigns,
		CopingStrategies: req.CopingStrategies,
		CreatedAt:        time.Now(),
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) ListSince(ctx context.Context, profileID uuid.UUID, since time.Time) ([]*model.MoodEntry, error) {
	return s.repo.ListSince(ctx, profileID, since)
}

func (s *Service) ListRecent(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.MoodEntry, error) {
	return s.repo.ListRecent(ctx, profileID, limit)
}

func (s *Service) Count(ctx context.Context, profileID uuid.UUID) (int64, error) {
	return s.repo.Count(ctx, profileID)
}

func (s *Service) Delete(ctx context.Context, profileID, entryID uuid.UUID) error {
	return s.repo.Delete(ctx, profileID, entryID)
}
