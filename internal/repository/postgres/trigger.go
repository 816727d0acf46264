package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

type triggerRepository struct {
	BaseRepository
}

func NewTriggerRepository(base BaseRepository) repository.TriggerRepository {
	return &triggerRepository{base}
}

func (r *triggerRepository) List(ctx context.Context, profileID uuid.UUID) ([]*model.NotificationTrigger, error) {
	query := `
        SELECT id, kind, type, conditions, title_template,
               body_template, priority, enabled, position
        FROM notification_triggers
        WHERE profile_id = $1
        ORDER BY position ASC
    `

	rows, err := r.GetDB().QueryxContext(ctx, query, profileID)
	if err != nil {
		return nil, apperrors.StorageUnavailable("trigger catalog", err)
	}
	defer rows.Close()

	var triggers []*model.NotificationTrigger
	for rows.Next() {
		var t model.NotificationTrigger
		var conditions []byte
		if err := rows.Scan(
			&t.ID,
			&t.Kind,
			&t.Type,
			&conditions,
			&t.TitleTemplate,
			&t.BodyTemplate,
			&t.Priority,
			&t.Enabled,
			&t.Position,
		); err != nil {
			return nil, apperrors.StorageUnavailable("trigger catalog", err)
		}
		if err := json.Unmarshal(conditions, &t.Conditions); err != nil {
			return nil, apperrors.StorageUnavailable("trigger catalog", err)
		}
		triggers = append(triggers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageUnavailable("trigger catalog", err)
	}
	return triggers, nil
}

func (r *triggerRepository) Upsert(ctx context.Context, profileID uuid.UUID, trigger *model.NotificationTrigger) error {
	conditions, err := json.Marshal(trigger.Conditions)
	if err != nil {
		return apperrors.Internal(err)
	}

	query := `
        INSERT INTO notification_triggers (
            id, profile_id, kind, type, conditions, title_template,
            body_template, priority, enabled, position
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO UPDATE SET
            kind = EXCLUDED.kind,
            type = EXCLUDED.type,
            conditions = EXCLUDED.conditions,
            title_template = EXCLUDED.title_template,
            body_template = EXCLUDED.body_template,
            priority = EXCLUDED.priority,
            enabled = EXCLUDED.enabled,
            position = EXCLUDED.position
    `

	_, err = r.GetDB().ExecContext(ctx, query,
		trigger.ID,
		profileID,
		trigger.Kind,
		trigger.Type,
		conditions,
		trigger.TitleTemplate,
		trigger.BodyTemplate,
		trigger.Priority,
		trigger.Enabled,
		trigger.Position,
	)
	if err != nil {
		return apperrors.StorageUnavailable("trigger catalog", err)
	}
	return nil
}

func (r *triggerRepository) Delete(ctx context.Context, profileID, triggerID uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM notification_triggers WHERE id = $1 AND profile_id = $2`,
		triggerID, profileID)
	if err != nil {
		return apperrors.StorageUnavailable("trigger catalog", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.StorageUnavailable("trigger catalog", err)
	}
	if rows == 0 {
		return apperrors.NotFound("trigger", nil)
	}
	return nil
}
