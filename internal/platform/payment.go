package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/metrics"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

type pendingRequestsResponse struct {
	Claims []json.RawMessage `json:"claims"`
}

// PendingAttempts fetches all unsettled attempts from the claim record
// store. Records that cannot be normalized are logged and dropped.
func (c *Client) PendingAttempts(ctx context.Context, sess *models.Session) ([]models.Attempt, error) {
	if sess == nil {
		return nil, ErrNoSession
	}

	var resp pendingRequestsResponse
	if err := c.do(ctx, sess, http.MethodGet, "/payment/pending-requests", nil, nil, &resp); err != nil {
		return nil, err
	}

	attempts := make([]models.Attempt, 0, len(resp.Claims))
	for i, item := range resp.Claims {
		var raw rawAttempt
		if err := json.Unmarshal(item, &raw); err != nil {
			c.dropMalformed(i, err)
			continue
		}
		attempt, err := normalizeAttempt(raw)
		if err != nil {
			c.dropMalformed(i, err)
			continue
		}
		attempts = append(attempts, attempt)
	}

	c.logger.Debug("Fetched pending attempts", "received", len(resp.Claims), "kept", len(attempts))
	return attempts, nil
}

func (c *Client) dropMalformed(index int, err error) {
	metrics.MalformedAttempts.Inc()
	c.logger.Warn("Dropping malformed claim record", "index", index, "error", err)
}

type approveBody struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferBody struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// Settle pays out an aggregated claim through the configured settlement
// endpoint. On success the platform flips the user's Pending attempts to
// Approved.
func (c *Client) Settle(ctx context.Context, sess *models.Session, req models.SettlementRequest) error {
	if sess == nil {
		return ErrNoSession
	}

	switch c.endpoint {
	case EndpointTransfer:
		return c.Transfer(ctx, sess, req)
	case EndpointApproveRequest:
		path := "/payment/approve-request/" + url.PathEscape(req.ClaimUserID)
		return c.do(ctx, sess, http.MethodPost, path, nil, approveBody{Amount: req.Amount}, nil)
	default:
		return fmt.Errorf("unknown settlement endpoint %q", c.endpoint)
	}
}

// Transfer sends tokens to a user's wallet.
func (c *Client) Transfer(ctx context.Context, sess *models.Session, req models.SettlementRequest) error {
	if sess == nil {
		return ErrNoSession
	}
	return c.do(ctx, sess, http.MethodPost, "/payment/transfer", nil,
		transferBody{UserID: req.ClaimUserID, Amount: req.Amount}, nil)
}
