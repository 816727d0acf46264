package trigger

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/havenapp/mood-engine/internal/model"
	apperrors "github.com/havenapp/mood-engine/pkg/errors"
)

// triggerShape mirrors the catalog fields validator/v10 can check
// structurally; kind-specific condition pairing is checked by hand below.
type triggerShape struct {
	Kind          string `validate:"required,oneof=time_based mood_pattern inactivity crisis_level"`
	Type          string `validate:"required,oneof=daily_check_in mood_reminder crisis_support safety_plan_review encouragement inactivity_nudge"`
	TitleTemplate string `validate:"required"`
	BodyTemplate  string `validate:"required"`
	Priority      string `validate:"required,oneof=low normal high critical"`
}

// CatalogLoader validates raw trigger definitions. A malformed definition
// is excluded and reported; it never aborts the rest of the catalog.
type CatalogLoader struct {
	validate *validator.Validate
	logger   *zerolog.Logger
}

func NewCatalogLoader(logger *zerolog.Logger) *CatalogLoader {
	return &CatalogLoader{
		validate: validator.New(),
		logger:   logger,
	}
}

// Load returns the valid triggers in catalog order plus one
// InvalidTriggerDefinition diagnostic per excluded rule.
func (l *CatalogLoader) Load(raw []*model.NotificationTrigger) ([]*model.NotificationTrigger, []*apperrors.AppError) {
	valid := make([]*model.NotificationTrigger, 0, len(raw))
	var diagnostics []*apperrors.AppError

	for _, t := range raw {
		if err := l.check(t); err != nil {
			diag := apperrors.InvalidTriggerDefinition(t.ID.String(), err)
			diagnostics = append(diagnostics, diag)
			l.logger.Warn().
				Err(err).
				Str("trigger_id", t.ID.String()).
				Str("kind", string(t.Kind)).
				Msg("excluding invalid trigger definition")
			continue
		}
		valid = append(valid, t)
	}

	return valid, diagnostics
}

func (l *CatalogLoader) check(t *model.NotificationTrigger) error {
	shape := triggerShape{
		Kind:          string(t.Kind),
		Type:          string(t.Type),
		TitleTemplate: t.TitleTemplate,
		BodyTemplate:  t.BodyTemplate,
		Priority:      string(t.Priority),
	}
	if err := l.validate.Struct(shape); err != nil {
		return err
	}

	switch t.Kind {
	case model.TriggerTimeBased:
		if t.Conditions.TimeOfDay == "" {
			return fmt.Errorf("time_based trigger requires time_of_day")
		}
		if _, err := time.Parse("15:04", t.Conditions.TimeOfDay); err != nil {
			return fmt.Errorf("time_of_day must be HH:MM: %w", err)
		}

	case model.TriggerMoodPattern:
		switch t.Conditions.TrendPattern {
		case model.TrendImproving, model.TrendDeclining, model.TrendStable:
		default:
			return fmt.Errorf("mood_pattern trigger requires a valid trend_pattern")
		}

	case model.TriggerInactivity:
		if t.Conditions.DaysInactive < 1 {
			return fmt.Errorf("inactivity trigger requires days_inactive >= 1")
		}

	case model.TriggerCrisisLevel:
		switch t.Conditions.MinSeverity {
		case model.SeverityMild, model.SeverityModerate, model.SeveritySevere:
		default:
			return fmt.Errorf("crisis_level trigger requires a valid min_severity")
		}
	}

	return nil
}
