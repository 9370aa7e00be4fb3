package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrDuplicateOrder  = errors.New("duplicate_order")
	ErrInvalidSide     = errors.New("invalid_side")
	ErrInvalidSequence = errors.New("invalid_sequence")
)

// ValidationError represents an intake validation failure. Orders failing
// validation never reach the book.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SettlementErrorCode classifies settlement failures.
type SettlementErrorCode string

const (
	// SettlementCollectionRejected means the ledger refused the order's
	// pre-authorized collection payload (stale sequence, insufficient funds).
	SettlementCollectionRejected SettlementErrorCode = "collection_rejected"
	// SettlementPayoutFailed means the payout from the custody account was
	// rejected after the collection had already confirmed.
	SettlementPayoutFailed SettlementErrorCode = "payout_failed"
	// SettlementLedgerTimeout means the transport exhausted its retries.
	SettlementLedgerTimeout SettlementErrorCode = "ledger_timeout"
	// SettlementExpired means the payload's last-valid-ledger bound has
	// already passed; it was not submitted.
	SettlementExpired SettlementErrorCode = "expired"
)

// SettlementError reports which order failed settlement and how. A single
// SettlementError fails the whole batch: the triggering allocation is
// discarded in full.
type SettlementError struct {
	Code    SettlementErrorCode
	OrderID string
	Err     error
}

func (e *SettlementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("settlement %s: order %s: %v", e.Code, e.OrderID, e.Err)
	}
	return fmt.Sprintf("settlement %s: order %s", e.Code, e.OrderID)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
