// Package claimview drives the operator's approval dialog: which claim is
// open, what amount is entered, and whether a payout is being submitted.
package claimview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/calculator"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/settlement"
)

// State is the dialog state.
type State int

const (
	Idle State = iota
	Reviewing
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reviewing:
		return "reviewing"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrNoDialog       = errors.New("no claim is open")
	ErrDialogOpen     = errors.New("a claim is already open")
	ErrUnknownClaim   = errors.New("claim not found")
	ErrSubmitting     = errors.New("settlement in progress")
	ErrNotCancellable = errors.New("a submitted settlement cannot be cancelled")
)

// FetchError is a claim list refresh that failed. The previous list is kept.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return "fetch claims: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClaimLister returns the current pending claims.
type ClaimLister interface {
	ListClaims(ctx context.Context) ([]models.AggregatedClaim, error)
}

// Approver submits a payout for one claim.
type Approver interface {
	Approve(ctx context.Context, userID string, amount decimal.Decimal) error
}

// View is a snapshot of the controller for rendering.
type View struct {
	State  State
	Claims []models.AggregatedClaim

	// Selected is the open claim; zero in Idle.
	Selected models.AggregatedClaim

	// Amount is the raw text in the amount field.
	Amount string

	// Err is the last validation, settlement or fetch error.
	Err error

	// ConfirmEnabled is false while a settlement is being submitted.
	ConfirmEnabled bool
}

// Controller is the claim view state machine. It is safe for concurrent
// use; Confirm blocks until the settlement resolves, and any other Confirm
// arriving meanwhile is rejected without a call.
type Controller struct {
	lister   ClaimLister
	approver Approver
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	claims    []models.AggregatedClaim
	selected  models.AggregatedClaim
	amount    string
	lastErr   error
	onSettled []func(userID string)
}

// New creates a Controller in Idle with an empty claim list.
func New(lister ClaimLister, approver Approver, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		lister:   lister,
		approver: approver,
		logger:   logger,
	}
}

// OnSettled registers fn to run after a successful Confirm. fn runs without
// the controller lock held, so it may call Refresh.
func (c *Controller) OnSettled(fn func(userID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSettled = append(c.onSettled, fn)
}

// Refresh re-fetches the claim list. On failure the stale list stays and
// a *FetchError is returned. An open dialog is left alone even when its
// claim has disappeared from the new list.
func (c *Controller) Refresh(ctx context.Context) error {
	claims, err := c.lister.ListClaims(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lastErr = &FetchError{Err: err}
		c.logger.Warn("Claim refresh failed", "error", err)
		return c.lastErr
	}

	c.claims = claims
	if c.state == Idle {
		c.lastErr = nil
	}
	return nil
}

// Open selects a claim and defaults the amount to its total score.
func (c *Controller) Open(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return ErrDialogOpen
	}
	claim, ok := calculator.FindClaim(c.claims, userID)
	if !ok {
		return ErrUnknownClaim
	}

	c.state = Reviewing
	c.selected = claim
	c.amount = claim.TotalScore.String()
	c.lastErr = nil
	return nil
}

// SetAmount replaces the amount text. Only allowed while Reviewing.
func (c *Controller) SetAmount(amount string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Idle:
		return ErrNoDialog
	case Submitting:
		return ErrSubmitting
	}
	c.amount = amount
	return nil
}

// Cancel closes the dialog without submitting.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Idle:
		return ErrNoDialog
	case Submitting:
		return ErrNotCancellable
	}
	c.reset()
	return nil
}

// Confirm validates the amount and submits the payout. A validation error
// keeps the dialog in Reviewing with no call made. Success returns to Idle
// and drops the claim from the list until the next Refresh; failure
// returns to Reviewing with the error recorded.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return ErrNoDialog
	case Submitting:
		c.mu.Unlock()
		return ErrSubmitting
	}

	amount, err := settlement.ParseAmount(c.amount)
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		return err
	}

	userID := c.selected.UserID
	c.state = Submitting
	c.lastErr = nil
	c.mu.Unlock()

	err = c.approver.Approve(ctx, userID, amount)

	c.mu.Lock()
	if err != nil {
		c.state = Reviewing
		c.lastErr = err
		c.mu.Unlock()
		c.logger.Warn("Approval failed", "user_id", userID, "amount", amount.String(), "error", err)
		return err
	}

	c.removeClaim(userID)
	c.reset()
	listeners := make([]func(string), len(c.onSettled))
	copy(listeners, c.onSettled)
	c.mu.Unlock()

	c.logger.Info("Approval settled", "user_id", userID, "amount", amount.String())
	for _, fn := range listeners {
		fn(userID)
	}
	return nil
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	claims := make([]models.AggregatedClaim, len(c.claims))
	copy(claims, c.claims)

	return View{
		State:          c.state,
		Claims:         claims,
		Selected:       c.selected,
		Amount:         c.amount,
		Err:            c.lastErr,
		ConfirmEnabled: c.state == Reviewing,
	}
}

func (c *Controller) reset() {
	c.state = Idle
	c.selected = models.AggregatedClaim{}
	c.amount = ""
	c.lastErr = nil
}

func (c *Controller) removeClaim(userID string) {
	kept := c.claims[:0:0]
	for _, claim := range c.claims {
		if claim.UserID != userID {
			kept = append(kept, claim)
		}
	}
	c.claims = kept
}
