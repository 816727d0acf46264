package trigger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenapp/mood-engine/internal/model"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

func testLoader() *CatalogLoader {
	l := zerolog.Nop()
	return NewCatalogLoader(&l)
}

func validTimeTrigger() *model.NotificationTrigger {
	return &model.NotificationTrigger{
		ID:            uuid.New(),
		Kind:          model.TriggerTimeBased,
		Type:          model.NotificationDailyCheckIn,
		Conditions:    model.TriggerConditions{TimeOfDay: "09:00"},
		TitleTemplate: "Daily check-in",
		BodyTemplate:  "How are you feeling?",
		Priority:      model.PriorityNormal,
		Enabled:       true,
	}
}

func TestCatalogLoadKeepsValidTriggers(t *testing.T) {
	loader := testLoader()

	valid, diagnostics := loader.Load([]*model.NotificationTrigger{validTimeTrigger()})

	assert.Len(t, valid, 1)
	assert.Empty(t, diagnostics)
}

func TestCatalogLoadExcludesMalformedWithoutAborting(t *testing.T) {
	loader := testLoader()

	bad := validTimeTrigger()
	bad.Conditions.TimeOfDay = "25:99"
	good := validTimeTrigger()

	valid, diagnostics := loader.Load([]*model.NotificationTrigger{bad, good})

	require.Len(t, valid, 1)
	assert.Equal(t, good.ID, valid[0].ID)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, apperrors.ErrInvalidTriggerDefinition, diagnostics[0].Code)
	assert.Contains(t, diagnostics[0].Message, bad.ID.String())
}

func TestCatalogLoadRejectsKindConditionMismatch(t *testing.T) {
	loader := testLoader()

	cases := []struct {
		name   string
		mutate func(*model.NotificationTrigger)
	}{
		{"time_based without time_of_day", func(tr *model.NotificationTrigger) {
			tr.Conditions.TimeOfDay = ""
		}},
		{"unknown kind", func(tr *model.NotificationTrigger) {
			tr.Kind = "lunar_phase"
		}},
		{"unknown type", func(tr *model.NotificationTrigger) {
			tr.Type = "carrier_pigeon"
		}},
		{"missing templates", func(tr *model.NotificationTrigger) {
			tr.TitleTemplate = ""
		}},
		{"unknown priority", func(tr *model.NotificationTrigger) {
			tr.Priority = "urgent"
		}},
		{"mood_pattern without pattern", func(tr *model.NotificationTrigger) {
			tr.Kind = model.TriggerMoodPattern
			tr.Conditions = model.TriggerConditions{}
		}},
		{"inactivity without threshold", func(tr *model.NotificationTrigger) {
			tr.Kind = model.TriggerInactivity
			tr.Conditions = model.TriggerConditions{}
		}},
		{"crisis_level without severity", func(tr *model.NotificationTrigger) {
			tr.Kind = model.TriggerCrisisLevel
			tr.Conditions = model.TriggerConditions{}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := validTimeTrigger()
			tc.mutate(tr)

			valid, diagnostics := loader.Load([]*model.NotificationTrigger{tr})

			assert.Empty(t, valid)
			assert.Len(t, diagnostics, 1)
		})
	}
}
