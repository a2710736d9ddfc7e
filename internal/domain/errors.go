package domain

import "errors"

var (
	// ErrValidation indicates malformed caller input. Nothing was mutated.
	ErrValidation = errors.New("invalid request")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden is returned when the principal does not own the resource,
	// lacks the admin role, or the account is banned.
	ErrForbidden = errors.New("forbidden")
	// ErrInsufficientCoins indicates a checked debit would drive the balance
	// negative. The balance is left untouched.
	ErrInsufficientCoins = errors.New("not enough coins")
)
