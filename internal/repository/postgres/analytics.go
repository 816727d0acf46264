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

type analyticsRepository struct {
	BaseRepository
}

func NewAnalyticsRepository(base BaseRepository) repository.AnalyticsRepository {
	return &analyticsRepository{base}
}

func (r *analyticsRepository) Load(ctx context.Context, profileID uuid.UUID) (*model.NotificationAnalytics, error) {
	var doc []byte
	err := r.GetDB().GetContext(ctx, &doc,
		`SELECT document FROM notification_analytics WHERE profile_id = $1`, profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewNotificationAnalytics(), nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("analytics", err)
	}

	var analytics model.NotificationAnalytics
	if err := json.Unmarshal(doc, &analytics); err != nil {
		return nil, apperrors.StorageUnavailable("analytics", err)
	}
	if analytics.ByType == nil {
		analytics.ByType = make(map[model.NotificationType]model.TypeStats)
	}
	return &analytics, nil
}

func (r *analyticsRepository) Save(ctx context.Context, profileID uuid.UUID, analytics *model.NotificationAnalytics) error {
	analytics.UpdatedAt = time.Now()
	doc, err := json.Marshal(analytics)
	if err != nil {
		return apperrors.Internal(err)
	}

	query := `
        INSERT INTO notification_analytics (profile_id, document, updated_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (profile_id) DO UPDATE SET
            document = EXCLUDED.document,
            updated_at = EXCLUDED.updated_at
    `

	if _, err := r.GetDB().ExecContext(ctx, query, profileID, doc, analytics.UpdatedAt); err != nil {
		return apperrors.StorageUnavailable("analytics", err)
	}
	return nil
}
