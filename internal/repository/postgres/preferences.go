package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

type preferencesRepository struct {
	BaseRepository
}

func NewPreferencesRepository(base BaseRepository) repository.PreferencesRepository {
	return &preferencesRepository{base}
}

// Load returns saved preferences, or the defaults when the profile has
// never saved any.
func (r *preferencesRepository) Load(ctx context.Context, profileID uuid.UUID) (*model.NotificationPreferences, error) {
	var doc []byte
	err := r.GetDB().GetContext(ctx, &doc,
		`SELECT document FROM notification_preferences WHERE profile_id = $1`, profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultPreferences(), nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("preferences", err)
	}

	var prefs model.NotificationPreferences
	if err := json.Unmarshal(doc, &prefs); err != nil {
		return nil, apperrors.StorageUnavailable("preferences", err)
	}
	return &prefs, nil
}

func (r *preferencesRepository) Save(ctx context.Context, profileID uuid.UUID, prefs *model.NotificationPreferences) error {
	doc, err := json.Marshal(prefs)
	if err != nil {
		return apperrors.Internal(err)
	}

	query := `
        INSERT INTO notification_preferences (profile_id, document, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (profile_id) DO UPDATE SET
            document = EXCLUDED.document,
            updated_at = EXCLUDED.updated_at
    `

	if _, err := r.GetDB().ExecContext(ctx, query, profileID, doc, time.Now()); err != nil {
		return apperrors.StorageUnavailable("preferences", err)
	}
	return nil
}
