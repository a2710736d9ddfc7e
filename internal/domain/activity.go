// Package domain holds the streak, badge, and coin-economy logic for Farr.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DurationUnit qualifies an activity's duration value.
type DurationUnit string

const (
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
	DurationNumber  DurationUnit = "number"
)

// RecoveredExerciseType marks activities synthesized by day recovery.
const RecoveredExerciseType = "Recovered Day"

// ActivityRecord is one logged exercise session. Records are immutable once
// created and are never deleted.
type ActivityRecord struct {
	ID             string
	UserID         string
	ExerciseType   string
	Duration       float64
	DurationUnit   DurationUnit
	CaloriesBurned float64
	ImageURL       string
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// Recovered reports whether the record was synthesized by day recovery
// rather than logged by the user.
func (a ActivityRecord) Recovered() bool {
	return a.ExerciseType == RecoveredExerciseType
}

// NewActivityInput is the payload for logging an activity.
type NewActivityInput struct {
	UserID         string
	ExerciseType   string
	Duration       float64
	DurationUnit   DurationUnit
	CaloriesBurned float64
	ImageURL       string
	OccurredAt     time.Time // zero value defaults to now
}

// Validate checks the payload without touching storage.
func (in NewActivityInput) Validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(in.ExerciseType) == "" {
		return errors.New("exercise_type is required")
	}
	if in.Duration <= 0 {
		return errors.New("duration must be > 0")
	}
	switch in.DurationUnit {
	case DurationMinutes, DurationHours, DurationNumber:
	default:
		return errors.New("duration_unit must be one of minutes, hours, number")
	}
	if in.CaloriesBurned < 0 {
		return errors.New("calories_burned must be >= 0")
	}
	return nil
}

// SynthesizeRecovery builds the n backdated records a recovery transaction
// inserts. Records land at anchor-1 .. anchor-n days, never on the anchor
// day itself, so they extend the history backward without colliding with
// the most recent real activity.
func SynthesizeRecovery(userID string, anchor time.Time, n int, now time.Time) []ActivityRecord {
	records := make([]ActivityRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, ActivityRecord{
			ID:             uuid.NewString(),
			UserID:         userID,
			ExerciseType:   RecoveredExerciseType,
			Duration:       0,
			DurationUnit:   DurationNumber,
			CaloriesBurned: 0,
			OccurredAt:     anchor.AddDate(0, 0, -i),
			CreatedAt:      now,
		})
	}
	return records
}
