// Package outbox persists domain events next to the data they describe and
// delivers them to Kafka asynchronously.
package outbox

import "time"

// Event types recorded by the repository.
const (
	EventActivityLogged    = "activity.logged"
	EventDaysRecovered     = "days.recovered"
	EventCoinsAdjusted     = "coins.adjusted"
	EventCoinsBulkAdjusted = "coins.bulk_adjusted"
	EventBanChanged        = "user.ban_changed"
)

// ActivityLogged is emitted when a user logs an exercise session.
type ActivityLogged struct {
	ActivityID   string    `json:"activity_id"`
	UserID       string    `json:"user_id"`
	ExerciseType string    `json:"exercise_type"`
	Duration     float64   `json:"duration"`
	DurationUnit string    `json:"duration_unit"`
	Calories     float64   `json:"calories_burned"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// DaysRecovered is emitted when a recovery transaction commits.
type DaysRecovered struct {
	UserID       string    `json:"user_id"`
	Days         int       `json:"days"`
	CoinsSpent   int64     `json:"coins_spent"`
	BalanceAfter int64     `json:"balance_after"`
	AnchorDate   time.Time `json:"anchor_date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// CoinsAdjusted is emitted for every ledger mutation outside recovery.
type CoinsAdjusted struct {
	UserID       string    `json:"user_id"`
	Action       string    `json:"action"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// CoinsBulkAdjusted is emitted when an administrative adjustment touches
// every account in one statement.
type CoinsBulkAdjusted struct {
	Action     string    `json:"action"`
	Amount     int64     `json:"amount"`
	Accounts   int64     `json:"accounts"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BanChanged is emitted when moderation flips the ban flag.
type BanChanged struct {
	UserID     string    `json:"user_id"`
	Banned     bool      `json:"banned"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Metadata describes how to route an event type.
type Metadata struct {
	Topic string
}

// Catalog maps event types to their Kafka destination.
var Catalog = map[string]Metadata{
	EventActivityLogged:    {Topic: "farr.activity_events"},
	EventDaysRecovered:     {Topic: "farr.economy_events"},
	EventCoinsAdjusted:     {Topic: "farr.economy_events"},
	EventCoinsBulkAdjusted: {Topic: "farr.economy_events"},
	EventBanChanged:        {Topic: "farr.user_events"},
}

// Message is one row of the outbox table.
type Message struct {
	EventID       int64
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	PartitionKey  string
	Payload       []byte
}
