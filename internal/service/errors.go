package service

import (
	"context"
	"errors"
	"sync"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/Aayan-infotech/bitcoin-admin/internal/auth"
	"github.com/Aayan-infotech/bitcoin-admin/internal/middleware"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/platform"
	"github.com/Aayan-infotech/bitcoin-admin/internal/settlement"
)

// ErrClaimNotFound is returned when the user has no pending claim.
var ErrClaimNotFound = settlement.ErrClaimNotPending

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validateRequest checks a message's validate tags.
func validateRequest(msg any) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// requireSession returns the caller's session. RequireAuth guarantees one
// on every non-public procedure.
func requireSession(ctx context.Context) (*models.Session, error) {
	sess, ok := middleware.SessionFrom(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return sess, nil
}

// platformError maps a failed platform read to a Connect error.
func platformError(err error) error {
	if platform.IsUnauthorized(err) {
		return connect.NewError(connect.CodeUnauthenticated, err)
	}
	return connect.NewError(connect.CodeUnavailable, err)
}

// settlementCode maps a settlement outcome to a Connect code and the audit
// outcome it represents.
func settlementCode(err error) (connect.Code, models.AuditOutcome) {
	var settleErr *settlement.SettlementError
	switch {
	case errors.Is(err, settlement.ErrInvalidAmount), errors.Is(err, settlement.ErrMissingUser):
		return connect.CodeInvalidArgument, models.AuditRejected
	case errors.Is(err, settlement.ErrSettlementInFlight):
		return connect.CodeAborted, models.AuditRejected
	case platform.IsUnauthorized(err):
		return connect.CodeUnauthenticated, models.AuditFailed
	case errors.As(err, &settleErr):
		return connect.CodeUnavailable, models.AuditFailed
	default:
		return connect.CodeInternal, models.AuditFailed
	}
}
