package delivery

import (
	"context"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
)

// Sink is the platform notification-delivery seam. Deliver is synchronous:
// it returns nil when the platform accepted the notification and an error
// when it rejected it. The sink de-duplicates by notification id, so
// retrying an already-accepted id is safe.
type Sink interface {
	Deliver(ctx context.Context, notification *model.SmartNotification) error
}

// OpenedEvent is the platform callback payload for a user opening a
// delivered notification.
type OpenedEvent struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ProfileID      uuid.UUID `json:"profile_id"`
}
