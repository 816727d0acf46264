package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.SmartNotification) error {
	payload, err := json.Marshal(notification.Payload)
	if err != nil {
		return apperrors.Internal(err)
	}

	query := `
        INSERT INTO smart_notifications (
            id, profile_id, type, title, body, priority,
            scheduled_at, payload, sent, trigger_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	_, err = r.GetDB().ExecContext(ctx, query,
		notification.ID,
		notification.ProfileID,
		notification.Type,
		notification.Title,
		notification.Body,
		notification.Priority,
		notification.ScheduledAt,
		payload,
		notification.Sent,
		notification.TriggerID,
		notification.CreatedAt,
	)
	if err != nil {
		return apperrors.StorageUnavailable("notification", err)
	}
	return nil
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*model.SmartNotification) error {
	if len(notifications) == 0 {
		return nil
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
            INSERT INTO smart_notifications (
                id, profile_id, type, title, body, priority,
                scheduled_at, payload, sent, trigger_id, created_at
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        `
		for _, n := range notifications {
			payload, err := json.Marshal(n.Payload)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query,
				n.ID, n.ProfileID, n.Type, n.Title, n.Body, n.Priority,
				n.ScheduledAt, payload, n.Sent, n.TriggerID, n.CreatedAt,
			); err != nil {
				return apperrors.StorageUnavailable("notification", err)
			}
		}
		return nil
	})
}

const notificationColumns = `
    id, profile_id, type, title, body, priority,
    scheduled_at, payload, sent, trigger_id, created_at
`

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.SmartNotification, error) {
	query := `SELECT ` + notificationColumns + ` FROM smart_notifications WHERE id = $1`

	n, err := scanNotification(r.GetDB().QueryRowxContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("notification", err)
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("notification", err)
	}
	return n, nil
}

func (r *notificationRepository) List(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.SmartNotification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM smart_notifications
        WHERE profile_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	return r.scanNotifications(ctx, query, profileID, limit)
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.GetDB().ExecContext(ctx,
		`UPDATE smart_notifications SET sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return apperrors.StorageUnavailable("notification", err)
	}
	return nil
}

func (r *notificationRepository) ListUnsent(ctx context.Context, limit int) ([]*model.SmartNotification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM smart_notifications
        WHERE sent = FALSE AND scheduled_at <= NOW()
        ORDER BY created_at ASC
        LIMIT $1
    `
	return r.scanNotifications(ctx, query, limit)
}

func (r *notificationRepository) LastUnopenedOfType(ctx context.Context, profileID uuid.UUID, t model.NotificationType, since time.Time) (*model.SmartNotification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM smart_notifications n
        WHERE n.profile_id = $1
          AND n.type = $2
          AND n.scheduled_at >= $3
          AND NOT EXISTS (
              SELECT 1 FROM notification_opens o WHERE o.notification_id = n.id
          )
        ORDER BY n.scheduled_at DESC
        LIMIT 1
    `

	n, err := scanNotification(r.GetDB().QueryRowxContext(ctx, query, profileID, t, since))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("notification", err)
	}
	return n, nil
}

func (r *notificationRepository) LastForTrigger(ctx context.Context, profileID, triggerID uuid.UUID) (*model.SmartNotification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM smart_notifications
        WHERE profile_id = $1 AND trigger_id = $2
        ORDER BY scheduled_at DESC
        LIMIT 1
    `

	n, err := scanNotification(r.GetDB().QueryRowxContext(ctx, query, profileID, triggerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageUnavailable("notification", err)
	}
	return n, nil
}

func (r *notificationRepository) MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := r.GetDB().ExecContext(ctx, `
        INSERT INTO notification_opens (notification_id, opened_at)
        VALUES ($1, $2)
        ON CONFLICT (notification_id) DO NOTHING
    `, id, at)
	if err != nil {
		return false, apperrors.StorageUnavailable("notification", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.StorageUnavailable("notification", err)
	}
	return rows > 0, nil
}

func (r *notificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result, err := r.GetDB().ExecContext(ctx, `
        INSERT INTO notification_deliveries (notification_id, delivered_at)
        VALUES ($1, $2)
        ON CONFLICT (notification_id) DO NOTHING
    `, id, at)
	if err != nil {
		return false, apperrors.StorageUnavailable("notification", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.StorageUnavailable("notification", err)
	}
	return rows > 0, nil
}

func scanNotification(row rowScanner) (*model.SmartNotification, error) {
	var n model.SmartNotification
	var payload []byte
	if err := row.Scan(
		&n.ID,
		&n.ProfileID,
		&n.Type,
		&n.Title,
		&n.Body,
		&n.Priority,
		&n.ScheduledAt,
		&payload,
		&n.Sent,
		&n.TriggerID,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 && string(payload) != "null" {
		n.Payload = &model.NotificationPayload{}
		if err := json.Unmarshal(payload, n.Payload); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

func (r *notificationRepository) scanNotifications(ctx context.Context, query string, args ...interface{}) ([]*model.SmartNotification, error) {
	rows, err := r.GetDB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.StorageUnavailable("notification", err)
	}
	defer rows.Close()

	var notifications []*model.SmartNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, apperrors.StorageUnavailable("notification", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageUnavailable("notification", err)
	}
	return notifications, nil
}
