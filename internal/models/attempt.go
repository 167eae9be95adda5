package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AttemptStatus is the payout state of a quiz attempt.
type AttemptStatus string

const (
	// StatusPending marks an attempt whose reward has not been paid out.
	StatusPending AttemptStatus = "Pending"
	// StatusApproved marks an attempt settled by a successful payout.
	StatusApproved AttemptStatus = "Approved"
)

// ParseAttemptStatus maps a platform status string onto AttemptStatus.
// Matching is case-insensitive.
func ParseAttemptStatus(s string) (AttemptStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	default:
		return "", fmt.Errorf("unknown attempt status %q", s)
	}
}

// Attempt is one scored quiz completion by a user.
//
// Attempts are created by the platform's quiz engine. The only change they
// ever see is Status moving from Pending to Approved, and that happens on
// the platform side as a result of a settlement.
type Attempt struct {
	// ID is the platform identifier of the attempt.
	ID string

	// UserID is the platform identifier of the user who took the quiz.
	UserID string

	// UserDisplayName is the user's name as reported with the attempt.
	// May be empty when the platform only sent a bare user ID.
	UserDisplayName string

	// Score is the number of reward points earned.
	Score decimal.Decimal

	// Status is the payout state.
	Status AttemptStatus

	// CreatedAt is when the attempt was recorded. Zero if the platform
	// did not report it.
	CreatedAt time.Time
}

// IsPending reports whether the attempt still awaits payout.
func (a Attempt) IsPending() bool {
	return a.Status == StatusPending
}
