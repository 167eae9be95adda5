package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/calculator"
	"github.com/Aayan-infotech/bitcoin-admin/internal/metrics"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/settlement"
	"github.com/Aayan-infotech/bitcoin-admin/internal/storage"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
)

const (
	defaultUsersPageSize = 10
	defaultAuditLimit    = 50
)

// Platform is the subset of the platform client the claim service reads.
type Platform interface {
	PendingAttempts(ctx context.Context, sess *models.Session) ([]models.Attempt, error)
	ListUsers(ctx context.Context, sess *models.Session, page, limit int) (models.UserPage, error)
}

// ClaimService implements the ClaimService RPC interface.
type ClaimService struct {
	platform  Platform
	initiator *settlement.Initiator
	audit     storage.AuditStore
	logger    *slog.Logger
}

// NewClaimService creates a new claim service.
func NewClaimService(p Platform, initiator *settlement.Initiator, audit storage.AuditStore, logger *slog.Logger) *ClaimService {
	return &ClaimService{
		platform:  p,
		initiator: initiator,
		audit:     audit,
		logger:    logger,
	}
}

// pendingClaims fetches attempts and aggregates them.
func (s *ClaimService) pendingClaims(ctx context.Context, sess *models.Session) ([]models.AggregatedClaim, error) {
	attempts, err := s.platform.PendingAttempts(ctx, sess)
	if err != nil {
		s.logger.Warn("Failed to fetch pending attempts", "operator", sess.Operator.Email, "error", err)
		return nil, platformError(err)
	}

	claims := calculator.PendingClaims(attempts)
	metrics.PendingClaims.Set(float64(len(claims)))
	return claims, nil
}

// ListClaims returns the current pending claims, one per user.
func (s *ClaimService) ListClaims(ctx context.Context, req *connect.Request[api.ListClaimsRequest]) (*connect.Response[api.ListClaimsResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := s.pendingClaims(ctx, sess)
	if err != nil {
		return nil, err
	}

	resp := &api.ListClaimsResponse{Claims: make([]api.Claim, 0, len(claims))}
	for _, c := range claims {
		claim := api.Claim{
			UserID:          c.UserID,
			UserDisplayName: c.UserDisplayName,
			TotalScore:      c.TotalScore,
			AttemptCount:    c.AttemptCount,
			InFlight:        s.initiator.InFlight(c.UserID),
		}
		if !c.LatestAttemptAt.IsZero() {
			at := c.LatestAttemptAt
			claim.LatestAttemptAt = &at
		}
		resp.Claims = append(resp.Claims, claim)
	}

	return connect.NewResponse(resp), nil
}

// ApproveClaim pays out a user's pending claim with the operator-entered
// amount. The claim must be pending on the platform at the time of the
// call.
func (s *ClaimService) ApproveClaim(ctx context.Context, req *connect.Request[api.ApproveClaimRequest]) (*connect.Response[api.ApproveClaimResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	amount, err := settlement.ParseAmount(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// The pending check runs inside the initiator's reservation for this
	// user. A stale dashboard can reopen a claim that another operator has
	// paid in the meantime.
	lookup := func(ctx context.Context, userID string) (models.AggregatedClaim, error) {
		claims, err := s.pendingClaims(ctx, sess)
		if err != nil {
			return models.AggregatedClaim{}, err
		}
		claim, ok := calculator.FindClaim(claims, userID)
		if !ok {
			return models.AggregatedClaim{}, ErrClaimNotFound
		}
		return claim, nil
	}

	settled, err := s.initiator.ApproveVerified(ctx, sess, req.Msg.UserID, amount, lookup)
	if err != nil {
		var connectErr *connect.Error
		switch {
		case errors.Is(err, ErrClaimNotFound):
			return nil, connect.NewError(connect.CodeNotFound, err)
		case errors.As(err, &connectErr):
			// Pending list could not be read; nothing was attempted.
			return nil, connectErr
		}
		s.record(ctx, sess, models.SettlementApprove, req.Msg.UserID, amount, err)
		code, _ := settlementCode(err)
		return nil, connect.NewError(code, err)
	}
	s.record(ctx, sess, models.SettlementApprove, settled.ClaimUserID, amount, nil)

	return connect.NewResponse(&api.ApproveClaimResponse{Settlement: toAPISettlement(settled)}), nil
}

// SendReward transfers tokens to any user, outside the claim workflow.
func (s *ClaimService) SendReward(ctx context.Context, req *connect.Request[api.SendRewardRequest]) (*connect.Response[api.SendRewardResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	amount, err := settlement.ParseAmount(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	settled, err := s.initiator.Send(ctx, sess, req.Msg.UserID, amount)
	s.record(ctx, sess, models.SettlementTransfer, settled.ClaimUserID, amount, err)
	if err != nil {
		code, _ := settlementCode(err)
		return nil, connect.NewError(code, err)
	}

	return connect.NewResponse(&api.SendRewardResponse{Settlement: toAPISettlement(settled)}), nil
}

// ListUsers returns one page of the platform user directory.
func (s *ClaimService) ListUsers(ctx context.Context, req *connect.Request[api.ListUsersRequest]) (*connect.Response[api.ListUsersResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	page, limit := req.Msg.Page, req.Msg.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultUsersPageSize
	}

	result, err := s.platform.ListUsers(ctx, sess, page, limit)
	if err != nil {
		s.logger.Warn("Failed to list users", "page", page, "error", err)
		return nil, platformError(err)
	}

	resp := &api.ListUsersResponse{
		Users:      make([]api.User, 0, len(result.Users)),
		Page:       result.Page,
		TotalPages: result.TotalPages,
	}
	for _, u := range result.Users {
		resp.Users = append(resp.Users, api.User{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			WalletAddress: u.WalletAddress,
		})
	}
	return connect.NewResponse(resp), nil
}

// ListAuditEntries returns the newest operator payout actions.
func (s *ClaimService) ListAuditEntries(ctx context.Context, req *connect.Request[api.ListAuditEntriesRequest]) (*connect.Response[api.ListAuditEntriesResponse], error) {
	if _, err := requireSession(ctx); err != nil {
		return nil, err
	}
	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	limit := req.Msg.Limit
	if limit < 1 {
		limit = defaultAuditLimit
	}

	entries, err := s.audit.ListAudit(ctx, limit)
	if err != nil {
		s.logger.Error("Failed to list audit entries", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := &api.ListAuditEntriesResponse{Entries: make([]api.AuditEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, api.AuditEntry{
			ID:            e.ID,
			OperatorEmail: e.OperatorEmail,
			Kind:          string(e.Kind),
			UserID:        e.UserID,
			Amount:        e.Amount,
			Outcome:       string(e.Outcome),
			Error:         e.Error,
			CreatedAt:     e.CreatedAt,
		})
	}
	return connect.NewResponse(resp), nil
}

// record journals a payout attempt. A journal failure is logged and never
// fails the request: the platform call has already happened.
func (s *ClaimService) record(ctx context.Context, sess *models.Session, kind models.SettlementKind, userID string, amount decimal.Decimal, err error) {
	entry := &models.AuditEntry{
		SessionID:     sess.ID,
		OperatorEmail: sess.Operator.Email,
		Kind:          kind,
		UserID:        userID,
		Amount:        amount,
		Outcome:       models.AuditSucceeded,
	}
	if err != nil {
		_, entry.Outcome = settlementCode(err)
		entry.Error = err.Error()
	}

	if err := s.audit.AppendAudit(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("Failed to write audit entry", "user_id", userID, "kind", kind, "error", err)
	}
}

func toAPISettlement(req models.SettlementRequest) api.Settlement {
	return api.Settlement{
		UserID:      req.ClaimUserID,
		Amount:      req.Amount,
		Kind:        string(req.Kind),
		RequestedAt: req.RequestedAt,
	}
}
