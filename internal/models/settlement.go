package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementKind distinguishes claim approvals from direct transfers.
type SettlementKind string

const (
	// SettlementApprove pays out an aggregated claim.
	SettlementApprove SettlementKind = "approve"
	// SettlementTransfer sends tokens to a user without a claim.
	SettlementTransfer SettlementKind = "transfer"
)

// SettlementRequest is an operator-confirmed payout. It exists for the
// duration of a single platform call; the platform ledger is the record
// of what was paid.
type SettlementRequest struct {
	// ClaimUserID is the user receiving the payout.
	ClaimUserID string

	// Amount is the operator-chosen payout. Always positive.
	Amount decimal.Decimal

	// RequestedAt is when the operator confirmed.
	RequestedAt time.Time

	// Kind selects approval or direct transfer.
	Kind SettlementKind
}
