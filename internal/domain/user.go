package domain

import "time"

// Role gates administrative operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account as the core sees it. Credentials live with the
// authentication collaborator and never reach this package.
type User struct {
	ID        string
	Name      string
	Email     string
	Coins     int64 // ledger balance, never negative
	IsBanned  bool
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CoinAction selects a ledger operation.
type CoinAction string

const (
	// CoinAdd credits the balance. No upper bound.
	CoinAdd CoinAction = "add"
	// CoinRemove debits with a floor at zero. Never fails; the loss below
	// zero is silently truncated (saturating subtraction, not an error).
	CoinRemove CoinAction = "remove"
	// CoinSpend debits only if the balance covers the full amount.
	CoinSpend CoinAction = "spend"
)
