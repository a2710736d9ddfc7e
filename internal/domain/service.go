package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Principal is the authenticated identity handed down by the transport
// layer. Token parsing happens in internal/auth; the core only sees the
// resulting user id and role.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal may perform administrative
// ledger and moderation operations.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// UserRepository captures persistence operations on user accounts and the
// coin ledger. Every coin method is a single atomic read-modify-write at
// the store; callers never see an intermediate balance.
type UserRepository interface {
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetBanned(ctx context.Context, id string, banned bool) (*User, error)
	MonthlySignups(ctx context.Context, since time.Time) ([]MonthlyCount, error)

	CreditCoins(ctx context.Context, id string, amount int64) (int64, error)
	DebitCoinsFloor(ctx context.Context, id string, amount int64) (int64, error)
	DebitCoinsChecked(ctx context.Context, id string, amount int64) (int64, error)
	CreditCoinsAll(ctx context.Context, amount int64) error
	DebitCoinsFloorAll(ctx context.Context, amount int64) error
}

// ActivityRepository captures persistence operations on activity records.
type ActivityRepository interface {
	Insert(ctx context.Context, record ActivityRecord) error
	ListByUser(ctx context.Context, userID string) ([]ActivityRecord, error)
	DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// RecoveryStore executes the recovery transaction: checked debit, record
// synthesis from the latest activity anchor, and insertion of all n records
// in one storage transaction. Either everything commits or nothing does.
type RecoveryStore interface {
	RecoverDays(ctx context.Context, userID string, n int) (int64, []ActivityRecord, error)
}

// DailyCount is one day's activity volume, for the admin overview.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// MonthlyCount is one month's registration volume.
type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// Service orchestrates the streak, badge, and coin workflows.
type Service struct {
	users      UserRepository
	activities ActivityRepository
	recovery   RecoveryStore
	now        func() time.Time
}

// NewService constructs a Service.
func NewService(users UserRepository, activities ActivityRepository, recovery RecoveryStore) *Service {
	return &Service{
		users:      users,
		activities: activities,
		recovery:   recovery,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// requireActiveUser loads a user and rejects missing or banned accounts.
// Banned accounts are rejected uniformly, reads included.
func (s *Service) requireActiveUser(ctx context.Context, id string) (*User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsBanned {
		return nil, ErrForbidden
	}
	return user, nil
}

// LogActivity records a new exercise session for the principal.
func (s *Service) LogActivity(ctx context.Context, p Principal, in NewActivityInput) (*ActivityRecord, error) {
	if in.UserID != p.UserID {
		return nil, ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.requireActiveUser(ctx, in.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}

	record := ActivityRecord{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		ExerciseType:   in.ExerciseType,
		Duration:       in.Duration,
		DurationUnit:   in.DurationUnit,
		CaloriesBurned: in.CaloriesBurned,
		ImageURL:       in.ImageURL,
		OccurredAt:     occurred.UTC(),
		CreatedAt:      now,
	}

	if err := s.activities.Insert(ctx, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListActivities returns a user's activity history, newest first. Owners
// see their own history; admins see anyone's. A banned target is rejected
// the same way Progress rejects it.
func (s *Service) ListActivities(ctx context.Context, p Principal, userID string) ([]ActivityRecord, error) {
	if userID != p.UserID && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.requireActiveUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.activities.ListByUser(ctx, userID)
}

// ProgressReport is the dashboard view: derived streaks, earned badges,
// calorie total, and the current coin balance.
type ProgressReport struct {
	Streaks       StreakResult `json:"streaks"`
	Badges        []Badge      `json:"badges"`
	TotalCalories float64      `json:"total_calories"`
	Coins         int64        `json:"coins"`
}

// Progress computes the dashboard for a user. Owners and admins only.
func (s *Service) Progress(ctx context.Context, p Principal, userID string) (*ProgressReport, error) {
	if userID != p.UserID && !p.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.requireActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.activities.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(records))
	var calories float64
	for _, r := range records {
		dates = append(dates, r.OccurredAt)
		calories += r.CaloriesBurned
	}

	streaks := ComputeStreaks(dates)
	return &ProgressReport{
		Streaks:       streaks,
		Badges:        EvaluateBadges(streaks),
		TotalCalories: calories,
		Coins:         user.Coins,
	}, nil
}

// RecoveryResult reports a completed recovery transaction.
type RecoveryResult struct {
	Coins          int64            `json:"coins"`
	RecoveredDays  int              `json:"recovered_days"`
	RecoveredItems []ActivityRecord `json:"recovered_activities"`
}

// RecoverDays spends n coins to backfill n missed days. All preconditions
// are checked before the store transaction runs, so a rejected request
// never debits coins or writes records.
func (s *Service) RecoverDays(ctx context.Context, p Principal, userID string, n int) (*RecoveryResult, error) {
	if userID != p.UserID {
		return nil, ErrForbidden
	}
	if n <= 0 {
		return nil, ErrValidation
	}
	if _, err := s.requireActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	balance, records, err := s.recovery.RecoverDays(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	return &RecoveryResult{
		Coins:          balance,
		RecoveredDays:  n,
		RecoveredItems: records,
	}, nil
}

// AdjustCoins applies a ledger operation to one user. Add and remove are
// administrative; spend is reserved for the account owner.
func (s *Service) AdjustCoins(ctx context.Context, p Principal, userID string, action CoinAction, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrValidation
	}

	switch action {
	case CoinAdd, CoinRemove:
		if !p.IsAdmin() {
			return 0, ErrForbidden
		}
	case CoinSpend:
		if userID != p.UserID {
			return 0, ErrForbidden
		}
	default:
		return 0, ErrValidation
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	if action == CoinSpend && user.IsBanned {
		return 0, ErrForbidden
	}

	switch action {
	case CoinAdd:
		return s.users.CreditCoins(ctx, userID, amount)
	case CoinRemove:
		return s.users.DebitCoinsFloor(ctx, userID, amount)
	default:
		return s.users.DebitCoinsChecked(ctx, userID, amount)
	}
}

// AdjustCoinsAll applies an add or floor-remove to every account. Admin only.
func (s *Service) AdjustCoinsAll(ctx context.Context, p Principal, action CoinAction, amount int64) error {
	if !p.IsAdmin() {
		return ErrForbidden
	}
	if amount <= 0 {
		return ErrValidation
	}

	switch action {
	case CoinAdd:
		return s.users.CreditCoinsAll(ctx, amount)
	case CoinRemove:
		return s.users.DebitCoinsFloorAll(ctx, amount)
	default:
		return ErrValidation
	}
}

// SetBanned flips the moderation flag on a user. Admin only.
func (s *Service) SetBanned(ctx context.Context, p Principal, userID string, banned bool) (*User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.users.SetBanned(ctx, userID, banned)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// AdminOverview aggregates account and volume statistics for moderation.
type AdminOverview struct {
	Users          []User         `json:"users"`
	DailyActivity  []DailyCount   `json:"daily_activity"`
	MonthlySignups []MonthlyCount `json:"monthly_signups"`
}

// Overview returns the admin dashboard: all users, activity volume for the
// last 30 days, and registrations for the last 12 months.
func (s *Service) Overview(ctx context.Context, p Principal) (*AdminOverview, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}

	now := s.now()
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	daily, err := s.activities.DailyCounts(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	monthly, err := s.users.MonthlySignups(ctx, now.AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}

	return &AdminOverview{
		Users:          users,
		DailyActivity:  daily,
		MonthlySignups: monthly,
	}, nil
}
