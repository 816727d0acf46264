package preferences

import (
	"fmt"
	"time"

	"github.com/havenapp/mood-engine/internal/model"
)

func validatePreferences(p *model.NotificationPreferences) error {
	if p.DailyCheckIn.TimeOfDay != "" {
		if _, err := time.Parse("15:04", p.DailyCheckIn.TimeOfDay); err != nil {
			return fmt.Errorf("daily_check_in.time_of_day must be HH:MM")
		}
	}
	for _, t := range p.MoodReminder.Times {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("mood_reminder.times entries must be HH:MM")
		}
	}

	if err := checkFrequency("mood_reminder.frequency", p.MoodReminder.Frequency,
		model.FrequencyDaily, model.FrequencyTwiceDaily, model.FrequencyWeekly); err != nil {
		return err
	}
	if err := checkFrequency("safety_plan_review.frequency", p.SafetyPlanReview.Frequency,
		model.FrequencyWeekly, model.FrequencyMonthly); err != nil {
		return err
	}
	return checkFrequency("encouragement.frequency", p.Encouragement.Frequency,
		model.FrequencyDaily, model.FrequencyWeekly)
}

func checkFrequency(field string, got model.Frequency, allowed ...model.Frequency) error {
	for _, f := range allowed {
		if got == f {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v", field, allowed)
}
