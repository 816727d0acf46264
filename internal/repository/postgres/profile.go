package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.Profile) error {
	query := `
        INSERT INTO profiles (
            id, name, access_key_hash, contact_email, emergency_email, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		profile.ID,
		profile.Name,
		profile.AccessKeyHash,
		profile.ContactEmail,
		profile.EmergencyEmail,
		profile.CreatedAt,
	)
	if err != nil {
		return apperrors.StorageUnavailable("profile", err)
	}
	return nil
}

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	err := r.GetDB().GetContext(ctx, &profile,
		`SELECT * FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("profile", err)
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("profile", err)
	}
	return &profile, nil
}

func (r *profileRepository) GetByName(ctx context.Context, name string) (*model.Profile, error) {
	var profile model.Profile
	err := r.GetDB().GetContext(ctx, &profile,
		`SELECT * FROM profiles WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("profile", err)
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("profile", err)
	}
	return &profile, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.GetDB().SelectContext(ctx, &profiles,
		`SELECT * FROM profiles ORDER BY created_at ASC`)
	if err != nil {
		return nil, apperrors.StorageUnavailable("profile", err)
	}
	return profiles, nil
}
