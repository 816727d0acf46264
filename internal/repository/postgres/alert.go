package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

type alertRepository struct {
	BaseRepository
}

func NewAlertRepository(base BaseRepository) repository.AlertRepository {
	return &alertRepository{base}
}

func (r *alertRepository) Append(ctx context.Context, alert *model.CrisisAlert) error {
	query := `
        INSERT INTO crisis_alerts (
            id, profile_id, severity, trigger_reasons,
            recommended_actions, notify_contacts, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		alert.ID,
		alert.ProfileID,
		alert.Severity,
		pq.Array(alert.TriggerReasons),
		pq.Array(alert.RecommendedActions),
		alert.NotifyContacts,
		alert.CreatedAt,
	)
	if err != nil {
		return apperrors.StorageUnavailable("alert log", err)
	}
	return nil
}

func (r *alertRepository) Latest(ctx context.Context, profileID uuid.UUID) (*model.CrisisAlert, error) {
	query := `
        SELECT id, profile_id, severity, trigger_reasons,
               recommended_actions, notify_contacts, created_at
        FROM crisis_alerts
        WHERE profile_id = $1
        ORDER BY created_at DESC
        LIMIT 1
    `

	alert, err := scanAlert(r.GetDB().QueryRowxContext(ctx, query, profileID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("alert log", err)
	}
	return alert, nil
}

func (r *alertRepository) List(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.CrisisAlert, error) {
	query := `
        SELECT id, profile_id, severity, trigger_reasons,
               recommended_actions, notify_contacts, created_at
        FROM crisis_alerts
        WHERE profile_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	rows, err := r.GetDB().QueryxContext(ctx, query, profileID, limit)
	if err != nil {
		return nil, apperrors.StorageUnavailable("alert log", err)
	}
	defer rows.Close()

	var alerts []*model.CrisisAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, apperrors.StorageUnavailable("alert log", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageUnavailable("alert log", err)
	}
	return alerts, nil
}

func (r *alertRepository) GetDetectorState(ctx context.Context, profileID uuid.UUID) (*model.DetectorState, error) {
	var state model.DetectorState
	err := r.GetDB().GetContext(ctx, &state, `
        SELECT profile_id, last_evaluated_entry_id, high_risk_streak, updated_at
        FROM detector_state
        WHERE profile_id = $1
    `, profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.DetectorState{ProfileID: profileID}, nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("alert log", err)
	}
	return &state, nil
}

func (r *alertRepository) SaveDetectorState(ctx context.Context, state *model.DetectorState) error {
	query := `
        INSERT INTO detector_state (profile_id, last_evaluated_entry_id, high_risk_streak, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (profile_id) DO UPDATE SET
            last_evaluated_entry_id = EXCLUDED.last_evaluated_entry_id,
            high_risk_streak = EXCLUDED.high_risk_streak,
            updated_at = EXCLUDED.updated_at
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		state.ProfileID,
		state.LastEvaluatedEntryID,
		state.HighRiskStreak,
		state.UpdatedAt,
	)
	if err != nil {
		return apperrors.StorageUnavailable("alert log", err)
	}
	return nil
}

func scanAlert(row rowScanner) (*model.CrisisAlert, error) {
	var alert model.CrisisAlert
	var reasons, actions pq.StringArray
	if err := row.Scan(
		&alert.ID,
		&alert.ProfileID,
		&alert.Severity,
		&reasons,
		&actions,
		&alert.NotifyContacts,
		&alert.CreatedAt,
	); err != nil {
		return nil, err
	}
	alert.TriggerReasons = reasons
	alert.RecommendedActions = actions
	return &alert, nil
}
