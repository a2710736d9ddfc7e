package domain

import "fmt"

// Badge is the name of an achievement unlocked by crossing a completed-day
// or streak-length threshold. Awards are cumulative and never revoked.
type Badge string

const (
	BadgeWelcome          Badge = "Welcome"
	BadgeBeginner         Badge = "Beginner"
	BadgeConsistentPlayer Badge = "Consistent Player"
	BadgeMonthly          Badge = "Monthly"
	BadgeYearlyFreak      Badge = "Yearly Sports Freak"
)

// MonthBadge names the recurring Month-{n} badge for n completed months.
func MonthBadge(n int) Badge {
	return Badge(fmt.Sprintf("Month-%d", n))
}

// EvaluateBadges maps streak metrics to the full set of earned badges.
// Every threshold is evaluated on every call, so the result is a pure
// function of the input and a user can qualify for several badges at once.
func EvaluateBadges(streaks StreakResult) []Badge {
	badges := make([]Badge, 0, 6)

	if streaks.TotalCompletedDays >= 1 {
		badges = append(badges, BadgeWelcome)
	}
	if streaks.TotalCompletedDays >= 7 {
		badges = append(badges, BadgeBeginner)
	}
	if streaks.TotalCompletedDays >= 30 {
		badges = append(badges, BadgeConsistentPlayer)
	}
	if streaks.TotalCompletedDays > 0 && streaks.TotalCompletedDays%30 == 0 {
		badges = append(badges, MonthBadge(streaks.TotalCompletedDays/30))
	}
	if streaks.LongestStreak >= 30 {
		badges = append(badges, BadgeMonthly)
	}
	if streaks.TotalCompletedDays >= 365 || streaks.LongestStreak >= 365 {
		badges = append(badges, BadgeYearlyFreak)
	}

	return badges
}
