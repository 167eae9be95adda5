package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AggregatedClaim is the per-user summary of all Pending attempts.
// It is derived on every fetch and never stored.
type AggregatedClaim struct {
	// UserID is the user the claim belongs to.
	UserID string

	// UserDisplayName is the name shown to the operator.
	UserDisplayName string

	// TotalScore is the sum of Score over the user's Pending attempts.
	TotalScore decimal.Decimal

	// AttemptCount is the number of Pending attempts summed.
	AttemptCount int

	// LatestAttemptAt is the newest CreatedAt among the summed attempts.
	LatestAttemptAt time.Time
}
