package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/model"
)

// All repository interfaces in one file
type (
	// JournalRepository owns the append-only mood entry sequence. Insertion
	// order is preserved; entries are never edited in place.
	JournalRepository interface {
		Append(ctx context.Context, entry *model.MoodEntry) error
		ListSince(ctx context.Context, profileID uuid.UUID, since time.Time) ([]*model.MoodEntry, error)
		ListRecent(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.MoodEntry, error)
		Latest(ctx context.Context, profileID uuid.UUID) (*model.MoodEntry, error)
		Count(ctx context.Context, profileID uuid.UUID) (int64, error)
		Delete(ctx context.Context, profileID, entryID uuid.UUID) error
	}

	// AlertRepository is the append-only crisis alert log plus the
	// detector's per-profile evaluation state (watermark and risk streak).
	AlertRepository interface {
		Append(ctx context.Context, alert *model.CrisisAlert) error
		Latest(ctx context.Context, profileID uuid.UUID) (*model.CrisisAlert, error)
		List(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.CrisisAlert, error)
		GetDetectorState(ctx context.Context, profileID uuid.UUID) (*model.DetectorState, error)
		SaveDetectorState(ctx context.Context, state *model.DetectorState) error
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.SmartNotification) error
		// CreateBatch persists a pass's finalized notifications atomically,
		// so an aborted pass never leaves a partial schedule behind.
		CreateBatch(ctx context.Context, notifications []*model.SmartNotification) error
		Get(ctx context.Context, id uuid.UUID) (*model.SmartNotification, error)
		List(ctx context.Context, profileID uuid.UUID, limit int) ([]*model.SmartNotification, error)
		MarkSent(ctx context.Context, id uuid.UUID) error
		ListUnsent(ctx context.Context, limit int) ([]*model.SmartNotification, error)
		// LastUnopenedOfType returns the newest notification of the type
		// scheduled at or after since that has no opened record, nil when
		// there is none. Drives de-duplication spacing.
		LastUnopenedOfType(ctx context.Context, profileID uuid.UUID, t model.NotificationType, since time.Time) (*model.SmartNotification, error)
		// LastForTrigger returns the newest notification produced by the
		// trigger, nil when it never fired. Drives fired-today checks.
		LastForTrigger(ctx context.Context, profileID, triggerID uuid.UUID) (*model.SmartNotification, error)
		// MarkOpened records an opened event once per id; reports whether
		// this call was the first.
		MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
		// MarkDelivered records a delivery confirmation once per id; reports
		// whether this call was the first. Both the sink-accept path and the
		// device callback confirm the same physical delivery, so the
		// analytics counters key off the first confirmation only.
		MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	}

	PreferencesRepository interface {
		Load(ctx context.Context, profileID uuid.UUID) (*model.NotificationPreferences, error)
		Save(ctx context.Context, profileID uuid.UUID, prefs *model.NotificationPreferences) error
	}

	AnalyticsRepository interface {
		Load(ctx context.Context, profileID uuid.UUID) (*model.NotificationAnalytics, error)
		Save(ctx context.Context, profileID uuid.UUID, analytics *model.NotificationAnalytics) error
	}

	TriggerRepository interface {
		List(ctx context.Context, profileID uuid.UUID) ([]*model.NotificationTrigger, error)
		Upsert(ctx context.Context, profileID uuid.UUID, trigger *model.NotificationTrigger) error
		Delete(ctx context.Context, profileID, triggerID uuid.UUID) error
	}

	ProfileRepository interface {
		Create(ctx context.Context, profile *model.Profile) error
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
		GetByName(ctx context.Context, name string) (*model.Profile, error)
		List(ctx context.Context) ([]*model.Profile, error)
	}
)
