package main

import (
	"context"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/claimview"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
)

var (
	_ claimview.ClaimLister = (*remoteClaims)(nil)
	_ claimview.Approver    = (*remoteClaims)(nil)
)

// remoteClaims feeds the claim view from the server.
type remoteClaims struct {
	client api.ClaimServiceClient
}

func (r *remoteClaims) ListClaims(ctx context.Context) ([]models.AggregatedClaim, error) {
	resp, err := r.client.ListClaims(ctx, connect.NewRequest(&api.ListClaimsRequest{}))
	if err != nil {
		return nil, err
	}

	claims := make([]models.AggregatedClaim, 0, len(resp.Msg.Claims))
	for _, c := range resp.Msg.Claims {
		claim := models.AggregatedClaim{
			UserID:          c.UserID,
			UserDisplayName: c.UserDisplayName,
			TotalScore:      c.TotalScore,
			AttemptCount:    c.AttemptCount,
		}
		if c.LatestAttemptAt != nil {
			claim.LatestAttemptAt = *c.LatestAttemptAt
		}
		claims = append(claims, claim)
	}
	return claims, nil
}

func (r *remoteClaims) Approve(ctx context.Context, userID string, amount decimal.Decimal) error {
	_, err := r.client.ApproveClaim(ctx, connect.NewRequest(&api.ApproveClaimRequest{
		UserID: userID,
		Amount: amount.String(),
	}))
	return err
}

// bearer attaches the dashboard token to every call.
func bearer(token string) connect.Interceptor {
	return connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	})
}
