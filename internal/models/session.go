package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is an operator's login. It carries the platform bearer token and
// is handed explicitly to every component that talks to the platform.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// Operator is who logged in.
	Operator Operator

	// PlatformToken is the bearer token issued by the platform's login.
	PlatformToken string

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	// ExpiresAt is when the session stops being accepted.
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AuditOutcome is the result of an audited operator action.
type AuditOutcome string

const (
	AuditSucceeded AuditOutcome = "succeeded"
	AuditFailed    AuditOutcome = "failed"
	AuditRejected  AuditOutcome = "rejected"
)

// AuditEntry records one operator payout action. The journal is for review
// only; whether a claim was paid is decided by the platform.
type AuditEntry struct {
	ID            string
	SessionID     string
	OperatorEmail string
	Kind          SettlementKind
	UserID        string
	Amount        decimal.Decimal
	Outcome       AuditOutcome
	Error         string
	CreatedAt     time.Time
}
