// Package postgres provides pgx-backed persistence for users, activities,
// the coin ledger, and the transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chinmaya-sahoo/Farr/internal/domain"
	"github.com/chinmaya-sahoo/Farr/internal/observability"
	"github.com/chinmaya-sahoo/Farr/internal/outbox"
)

// Repository implements the domain repositories on a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `user_id, name, email, coins, is_banned, role, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Coins, &u.IsBanned, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Get fetches a user by id. Returns (nil, nil) when absent.
func (r *Repository) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns every account, oldest first.
func (r *Repository) List(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// SetBanned flips the moderation flag and records the event. Returns
// (nil, nil) when the user does not exist.
func (r *Repository) SetBanned(ctx context.Context, id string, banned bool) (*domain.User, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `UPDATE users SET is_banned = $2, updated_at = NOW() WHERE user_id = $1 RETURNING ` + userColumns
	user, err := scanUser(tx.QueryRow(ctx, query, id, banned))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set banned: %w", err)
	}

	err = insertOutbox(ctx, tx, "user", id, outbox.EventBanChanged, id, outbox.BanChanged{
		UserID:     id,
		Banned:     banned,
		OccurredAt: user.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// MonthlySignups aggregates registrations per calendar month since the cutoff.
func (r *Repository) MonthlySignups(ctx context.Context, since time.Time) ([]domain.MonthlyCount, error) {
	const query = `SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*)
        FROM users WHERE created_at >= $1
        GROUP BY 1 ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("monthly signups: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.MonthlyCount, 0)
	for rows.Next() {
		var c domain.MonthlyCount
		if err := rows.Scan(&c.Month, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CreditCoins adds to the balance in one atomic statement.
func (r *Repository) CreditCoins(ctx context.Context, id string, amount int64) (int64, error) {
	balance, err := r.adjust(ctx, id, string(domain.CoinAdd), amount,
		`UPDATE users SET coins = coins + $2, updated_at = NOW() WHERE user_id = $1 RETURNING coins`)
	if err == nil {
		observability.RecordCoinsCredited(amount)
	}
	return balance, err
}

// DebitCoinsFloor subtracts with a floor at zero. The saturating loss is
// intentional, not an error.
func (r *Repository) DebitCoinsFloor(ctx context.Context, id string, amount int64) (int64, error) {
	return r.adjust(ctx, id, string(domain.CoinRemove), amount,
		`UPDATE users SET coins = GREATEST(coins - $2, 0), updated_at = NOW() WHERE user_id = $1 RETURNING coins`)
}

// DebitCoinsChecked subtracts only when the balance covers the amount. The
// guard lives in the UPDATE predicate, so two concurrent debits can never
// both observe the pre-debit balance.
func (r *Repository) DebitCoinsChecked(ctx context.Context, id string, amount int64) (int64, error) {
	balance, err := r.adjust(ctx, id, string(domain.CoinSpend), amount,
		`UPDATE users SET coins = coins - $2, updated_at = NOW() WHERE user_id = $1 AND coins >= $2 RETURNING coins`)
	if err == nil {
		observability.RecordCoinsSpent(amount)
	}
	return balance, err
}

// adjust runs one ledger statement plus its outbox event in a transaction.
// A statement that matches no row means either a missing user or, for the
// checked variant, an insufficient balance.
func (r *Repository) adjust(ctx context.Context, id, action string, amount int64, query string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, query, id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		var current int64
		lookupErr := tx.QueryRow(ctx, `SELECT coins FROM users WHERE user_id = $1`, id).Scan(&current)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		if lookupErr != nil {
			return 0, fmt.Errorf("adjust coins: %w", lookupErr)
		}
		return current, domain.ErrInsufficientCoins
	}
	if err != nil {
		return 0, fmt.Errorf("adjust coins: %w", err)
	}

	err = insertOutbox(ctx, tx, "user", id, outbox.EventCoinsAdjusted, id, outbox.CoinsAdjusted{
		UserID:       id,
		Action:       action,
		Amount:       amount,
		BalanceAfter: balance,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// CreditCoinsAll adds to every account.
func (r *Repository) CreditCoinsAll(ctx context.Context, amount int64) error {
	accounts, err := r.adjustAll(ctx, string(domain.CoinAdd), amount,
		`UPDATE users SET coins = coins + $1, updated_at = NOW()`)
	if err == nil && accounts > 0 {
		observability.RecordCoinsCredited(amount * accounts)
	}
	return err
}

// DebitCoinsFloorAll subtracts from every account, flooring at zero.
func (r *Repository) DebitCoinsFloorAll(ctx context.Context, amount int64) error {
	_, err := r.adjustAll(ctx, string(domain.CoinRemove), amount,
		`UPDATE users SET coins = GREATEST(coins - $1, 0), updated_at = NOW()`)
	return err
}

// adjustAll runs a whole-ledger statement and its outbox event in one
// transaction, so bulk adjustments show up on the event stream like
// single-user ones do.
func (r *Repository) adjustAll(ctx context.Context, action string, amount int64, query string) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, query, amount)
	if err != nil {
		return 0, fmt.Errorf("adjust all: %w", err)
	}
	accounts := tag.RowsAffected()

	err = insertOutbox(ctx, tx, "user", "all", outbox.EventCoinsBulkAdjusted, "all", outbox.CoinsBulkAdjusted{
		Action:     action,
		Amount:     amount,
		Accounts:   accounts,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return accounts, nil
}

const activityColumns = `activity_id, user_id, exercise_type, duration, duration_unit, calories_burned, image_url, occurred_at, created_at`

// Insert persists one activity and its event in a single transaction.
func (r *Repository) Insert(ctx context.Context, record domain.ActivityRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertActivity(ctx, tx, record); err != nil {
		return err
	}

	err = insertOutbox(ctx, tx, "activity", record.ID, outbox.EventActivityLogged, record.UserID, outbox.ActivityLogged{
		ActivityID:   record.ID,
		UserID:       record.UserID,
		ExerciseType: record.ExerciseType,
		Duration:     record.Duration,
		DurationUnit: string(record.DurationUnit),
		Calories:     record.CaloriesBurned,
		OccurredAt:   record.OccurredAt,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordActivityLogged(record.CreatedAt)
	return nil
}

func insertActivity(ctx context.Context, tx pgx.Tx, record domain.ActivityRecord) error {
	const stmt = `INSERT INTO activities (` + activityColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := tx.Exec(ctx, stmt,
		record.ID,
		record.UserID,
		record.ExerciseType,
		record.Duration,
		record.DurationUnit,
		record.CaloriesBurned,
		record.ImageURL,
		record.OccurredAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByUser returns a user's activities, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.ActivityRecord, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = $1 ORDER BY occurred_at DESC, activity_id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ActivityRecord, 0)
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ExerciseType, &rec.Duration, &rec.DurationUnit, &rec.CaloriesBurned, &rec.ImageURL, &rec.OccurredAt, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DailyCounts aggregates activity volume per UTC day since the cutoff.
func (r *Repository) DailyCounts(ctx context.Context, since time.Time) ([]domain.DailyCount, error) {
	const query = `SELECT date_trunc('day', occurred_at AT TIME ZONE 'UTC') AS day, COUNT(*)
        FROM activities WHERE occurred_at >= $1
        GROUP BY 1 ORDER BY 1`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.DailyCount, 0)
	for rows.Next() {
		var c domain.DailyCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// RecoverDays runs the full recovery transaction: checked debit, anchor
// lookup, synthesis of n backdated records, and the outbox event, all in
// one Postgres transaction. A failed step rolls everything back, so coins
// are never spent without the records existing and vice versa.
func (r *Repository) RecoverDays(ctx context.Context, userID string, n int) (int64, []domain.ActivityRecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback(ctx)

	var balance int64
	debit := `UPDATE users SET coins = coins - $2, updated_at = NOW() WHERE user_id = $1 AND coins >= $2 RETURNING coins`
	err = tx.QueryRow(ctx, debit, userID, int64(n)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		var current int64
		lookupErr := tx.QueryRow(ctx, `SELECT coins FROM users WHERE user_id = $1`, userID).Scan(&current)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return 0, nil, domain.ErrUserNotFound
		}
		if lookupErr != nil {
			return 0, nil, fmt.Errorf("recover days: %w", lookupErr)
		}
		return current, nil, domain.ErrInsufficientCoins
	}
	if err != nil {
		return 0, nil, fmt.Errorf("recover days: %w", err)
	}

	now := time.Now().UTC()
	anchor := now
	var latest *time.Time
	err = tx.QueryRow(ctx, `SELECT MAX(occurred_at) FROM activities WHERE user_id = $1`, userID).Scan(&latest)
	if err != nil {
		return 0, nil, fmt.Errorf("recover days: %w", err)
	}
	if latest != nil {
		anchor = latest.UTC()
	}

	records := domain.SynthesizeRecovery(userID, anchor, n, now)
	for _, rec := range records {
		if err := insertActivity(ctx, tx, rec); err != nil {
			return 0, nil, err
		}
	}

	err = insertOutbox(ctx, tx, "user", userID, outbox.EventDaysRecovered, userID, outbox.DaysRecovered{
		UserID:       userID,
		Days:         n,
		CoinsSpent:   int64(n),
		BalanceAfter: balance,
		AnchorDate:   anchor,
		OccurredAt:   now,
	})
	if err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, nil, err
	}
	observability.RecordRecovery(n)
	return balance, records, nil
}

// AwardConsistencyCoins credits every active user who logged a real
// activity on the given UTC day. Recovered records do not earn coins.
func (r *Repository) AwardConsistencyCoins(ctx context.Context, day time.Time, amount int64) (int64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 1)

	const stmt = `UPDATE users SET coins = coins + $3, updated_at = NOW()
        WHERE NOT is_banned AND user_id IN (
            SELECT DISTINCT user_id FROM activities
            WHERE occurred_at >= $1 AND occurred_at < $2 AND exercise_type <> $4
        )`

	tag, err := r.pool.Exec(ctx, stmt, start, end, amount, domain.RecoveredExerciseType)
	if err != nil {
		return 0, fmt.Errorf("award consistency coins: %w", err)
	}
	awarded := tag.RowsAffected()
	if awarded > 0 {
		observability.RecordCoinsCredited(amount * awarded)
	}
	return awarded, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, eventType, partitionKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := outbox.Catalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6)`

	if _, err := tx.Exec(ctx, stmt, aggregateType, aggregateID, eventType, meta.Topic, partitionKey, body); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
