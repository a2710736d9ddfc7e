package domain

import (
	"sort"
	"time"
)

// DayKey identifies a calendar day in UTC, counted from the Unix epoch.
// Two timestamps bucket to the same key iff they fall on the same UTC day,
// so consecutive days differ by exactly 1 regardless of month or DST.
type DayKey int64

const secondsPerDay = 24 * 60 * 60

// DayKeyOf buckets a timestamp to its UTC calendar day.
func DayKeyOf(t time.Time) DayKey {
	sec := t.Unix()
	day := sec / secondsPerDay
	if sec < 0 && sec%secondsPerDay != 0 {
		day--
	}
	return DayKey(day)
}

// Time returns midnight UTC of the day the key identifies.
func (k DayKey) Time() time.Time {
	return time.Unix(int64(k)*secondsPerDay, 0).UTC()
}

// StreakResult is the derived view of one user's activity history.
type StreakResult struct {
	CurrentStreak      int `json:"current_streak"`
	LongestStreak      int `json:"longest_streak"`
	TotalCompletedDays int `json:"total_completed_days"`
	// MissingDays counts calendar-day gaps strictly between the first and
	// last completed day. It prices recovery at 1 coin per day.
	MissingDays int `json:"missing_days"`
}

// ComputeStreaks derives streak metrics from an unordered set of activity
// timestamps. Multiple activities on the same UTC day count once. Pure:
// same input always yields the same output.
func ComputeStreaks(dates []time.Time) StreakResult {
	if len(dates) == 0 {
		return StreakResult{}
	}

	seen := make(map[DayKey]struct{}, len(dates))
	for _, d := range dates {
		seen[DayKeyOf(d)] = struct{}{}
	}

	days := make([]DayKey, 0, len(seen))
	for k := range seen {
		days = append(days, k)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	streak := 1
	longest := 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			streak++
		} else {
			streak = 1
		}
		if streak > longest {
			longest = streak
		}
	}

	span := int(days[len(days)-1] - days[0])
	missing := span - (len(days) - 1)
	if missing < 0 {
		missing = 0
	}

	return StreakResult{
		CurrentStreak:      streak,
		LongestStreak:      longest,
		TotalCompletedDays: len(days),
		MissingDays:        missing,
	}
}
