package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrItemMissing is returned when a listing references an item the
	// custody vault does not hold. Always an integrity fault, never user error.
	ErrItemMissing = errors.New("custody item missing")

	// ErrAlreadyInCustody is returned when an item is listed twice.
	ErrAlreadyInCustody = errors.New("item already in custody")
)

// IntegrityError marks a data-integrity fault: the affected listing is
// discarded or compensated, the operation reports an internal error, and the
// event is logged. It never crosses into request handlers as a Go error.
type IntegrityError struct {
	Op        string
	ListingID uint64
	ItemID    uint64
	Err       error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity fault [%s] listing=%d item=%d: %v", e.Op, e.ListingID, e.ItemID, e.Err)
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}
