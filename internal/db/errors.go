package db

import "errors"

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientFunds is returned when a withdrawal would drive
	// the balance negative. The ledger row is never written in that case.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
