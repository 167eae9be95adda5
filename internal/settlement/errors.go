package settlement

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("amount must be a positive number")
	ErrMissingUser        = errors.New("user id is required")
	ErrSettlementInFlight = errors.New("a settlement is already in flight")
	ErrClaimNotPending    = errors.New("no pending claim for user")
)

// SettlementError is a payout the platform did not complete: a network
// error, a non-2xx response or a rejected transfer. Nothing was changed
// locally and the operator may retry.
type SettlementError struct {
	UserID string
	Err    error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement for user %s failed: %v", e.UserID, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
