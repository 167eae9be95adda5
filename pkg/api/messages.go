package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type Operator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Operator  Operator  `json:"operator"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentOperatorRequest struct{}

type GetCurrentOperatorResponse struct {
	Operator  Operator  `json:"operator"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claim is one user's pending reward total.
type Claim struct {
	UserID          string          `json:"userId"`
	UserDisplayName string          `json:"userDisplayName,omitempty"`
	TotalScore      decimal.Decimal `json:"totalScore"`
	AttemptCount    int             `json:"attemptCount"`
	LatestAttemptAt *time.Time      `json:"latestAttemptAt,omitempty"`

	// InFlight is set while a settlement for this user awaits the
	// platform. Clients keep confirm disabled for such claims.
	InFlight bool `json:"inFlight,omitempty"`
}

type ListClaimsRequest struct{}

type ListClaimsResponse struct {
	Claims []Claim `json:"claims"`
}

// ApproveClaimRequest carries the operator-entered amount as typed, so the
// server applies the same validation to every client.
type ApproveClaimRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount string `json:"amount"`
}

// Settlement describes a payout the platform accepted.
type Settlement struct {
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Kind        string          `json:"kind"`
	RequestedAt time.Time       `json:"requestedAt"`
}

type ApproveClaimResponse struct {
	Settlement Settlement `json:"settlement"`
}

type SendRewardRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount string `json:"amount"`
}

type SendRewardResponse struct {
	Settlement Settlement `json:"settlement"`
}

type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type ListUsersRequest struct {
	Page  int `json:"page" validate:"gte=0"`
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

type ListUsersResponse struct {
	Users      []User `json:"users"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
}

type AuditEntry struct {
	ID            string          `json:"id"`
	OperatorEmail string          `json:"operatorEmail"`
	Kind          string          `json:"kind"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Outcome       string          `json:"outcome"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type ListAuditEntriesRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=500"`
}

type ListAuditEntriesResponse struct {
	Entries []AuditEntry `json:"entries"`
}
