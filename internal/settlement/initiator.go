// Package settlement executes operator-approved reward payouts against the
// platform's payment service, one at a time per user and never twice for
// the same confirmation.
package settlement

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/Aayan-infotech/bitcoin-admin/internal/metrics"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

// Settler is the platform payment service.
type Settler interface {
	// Settle pays out a claim; the platform marks the user's Pending
	// attempts Approved on success.
	Settle(ctx context.Context, sess *models.Session, req models.SettlementRequest) error

	// Transfer sends tokens to a user outside the claim workflow.
	Transfer(ctx context.Context, sess *models.Session, req models.SettlementRequest) error
}

// Options configures an Initiator.
type Options struct {
	// MaxInFlight caps concurrent settlement calls across all users.
	// Defaults to 1.
	MaxInFlight int64

	// Now overrides the clock (tests).
	Now func() time.Time

	Logger *slog.Logger
}

// Initiator runs settlements. A user with a settlement in flight cannot
// get a second one until the first resolves, and at most MaxInFlight calls
// run at once.
type Initiator struct {
	settler Settler
	slots   *semaphore.Weighted
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	inFlight  map[string]struct{}
	listeners []func(models.SettlementRequest)
}

// NewInitiator creates an Initiator backed by settler.
func NewInitiator(settler Settler, opts Options) *Initiator {
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Initiator{
		settler:  settler,
		slots:    semaphore.NewWeighted(opts.MaxInFlight),
		now:      opts.Now,
		logger:   opts.Logger,
		inFlight: make(map[string]struct{}),
	}
}

// OnSettled registers fn to run after every successful settlement.
// Callers use it to invalidate and refetch claim lists.
func (i *Initiator) OnSettled(fn func(models.SettlementRequest)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, fn)
}

// InFlight reports whether userID has a settlement awaiting the platform.
func (i *Initiator) InFlight(userID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, busy := i.inFlight[userID]
	return busy
}

// Approve pays out claim with the operator-chosen amount. The amount does
// not have to equal the claim's total.
func (i *Initiator) Approve(ctx context.Context, sess *models.Session, claim models.AggregatedClaim, amount decimal.Decimal) (models.SettlementRequest, error) {
	req := models.SettlementRequest{
		ClaimUserID: claim.UserID,
		Amount:      amount,
		Kind:        models.SettlementApprove,
	}
	return i.execute(ctx, sess, req, nil, i.settler.Settle)
}

// ClaimLookup re-reads a user's pending claim from the platform. It returns
// ErrClaimNotPending when the user has nothing left to pay.
type ClaimLookup func(ctx context.Context, userID string) (models.AggregatedClaim, error)

// ApproveVerified reserves userID, confirms through lookup that the claim is
// still pending and only then pays amount. The lookup runs under the same
// reservation as the payout, so a list read before another operator's
// settlement completed cannot trigger a second payout. A lookup error is
// returned unchanged and nothing is sent.
func (i *Initiator) ApproveVerified(ctx context.Context, sess *models.Session, userID string, amount decimal.Decimal, lookup ClaimLookup) (models.SettlementRequest, error) {
	req := models.SettlementRequest{
		ClaimUserID: userID,
		Amount:      amount,
		Kind:        models.SettlementApprove,
	}
	return i.execute(ctx, sess, req, lookup, i.settler.Settle)
}

// Send transfers amount to userID without a claim.
func (i *Initiator) Send(ctx context.Context, sess *models.Session, userID string, amount decimal.Decimal) (models.SettlementRequest, error) {
	req := models.SettlementRequest{
		ClaimUserID: userID,
		Amount:      amount,
		Kind:        models.SettlementTransfer,
	}
	return i.execute(ctx, sess, req, nil, i.settler.Transfer)
}

type settleFunc func(context.Context, *models.Session, models.SettlementRequest) error

func (i *Initiator) execute(ctx context.Context, sess *models.Session, req models.SettlementRequest, lookup ClaimLookup, call settleFunc) (models.SettlementRequest, error) {
	kind := string(req.Kind)

	req.ClaimUserID = strings.TrimSpace(req.ClaimUserID)
	if req.ClaimUserID == "" {
		metrics.SettlementsTotal.WithLabelValues(kind, string(models.AuditRejected)).Inc()
		return req, ErrMissingUser
	}
	if err := CheckAmount(req.Amount); err != nil {
		metrics.SettlementsTotal.WithLabelValues(kind, string(models.AuditRejected)).Inc()
		return req, err
	}

	if !i.acquire(req.ClaimUserID) {
		metrics.SettlementsTotal.WithLabelValues(kind, string(models.AuditRejected)).Inc()
		i.logger.Warn("Settlement rejected, already in flight", "user_id", req.ClaimUserID, "kind", kind)
		return req, ErrSettlementInFlight
	}

	if lookup != nil {
		if _, err := lookup(ctx, req.ClaimUserID); err != nil {
			i.release(req.ClaimUserID)
			metrics.SettlementsTotal.WithLabelValues(kind, string(models.AuditRejected)).Inc()
			i.logger.Warn("Settlement rejected, claim not verified", "user_id", req.ClaimUserID, "error", err)
			return req, err
		}
	}

	req.RequestedAt = i.now()
	metrics.SettlementsInFlight.Inc()
	i.logger.Info("Settlement submitted",
		"user_id", req.ClaimUserID,
		"amount", req.Amount.String(),
		"kind", kind,
	)

	// Once submitted a settlement runs to completion; only the transport
	// timeout ends it early.
	start := time.Now()
	err := call(context.WithoutCancel(ctx), sess, req)
	metrics.SettlementDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	metrics.SettlementsInFlight.Dec()
	i.release(req.ClaimUserID)

	if err != nil {
		metrics.SettlementsTotal.WithLabelValues(kind, string(models.AuditFailed)).Inc()
		i.logger.Error("Settlement failed",
			"user_id", req.ClaimUserID,
			"amount", req.Amount.String(),
			"kind", kind,
			"error", err,
		)
		return req, &SettlementError{UserID: req.ClaimUserID, Err: err}
	}

	metrics.SettlementsTotal.WithLabelValues(kind, string(models.AuditSucceeded)).Inc()
	i.logger.Info("Settlement succeeded",
		"user_id", req.ClaimUserID,
		"amount", req.Amount.String(),
		"kind", kind,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	i.notify(req)
	return req, nil
}

func (i *Initiator) acquire(userID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, busy := i.inFlight[userID]; busy {
		return false
	}
	if !i.slots.TryAcquire(1) {
		return false
	}
	i.inFlight[userID] = struct{}{}
	return true
}

func (i *Initiator) release(userID string) {
	i.mu.Lock()
	delete(i.inFlight, userID)
	i.mu.Unlock()
	i.slots.Release(1)
}

func (i *Initiator) notify(req models.SettlementRequest) {
	i.mu.Lock()
	listeners := make([]func(models.SettlementRequest), len(i.listeners))
	copy(listeners, i.listeners)
	i.mu.Unlock()

	for _, fn := range listeners {
		fn(req)
	}
}
