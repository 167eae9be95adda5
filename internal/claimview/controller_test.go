package claimview

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/calculator"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/settlement"
)

// fakePlatform serves claims aggregated from attempts and flips a user's
// attempts to Approved when a payout succeeds.
type fakePlatform struct {
	mu       sync.Mutex
	attempts []models.Attempt
	fetchErr error
	payErr   error
	block    chan struct{}
	started  chan struct{}
	calls    []approveCall
}

type approveCall struct {
	userID string
	amount decimal.Decimal
}

func (p *fakePlatform) ListClaims(ctx context.Context) ([]models.AggregatedClaim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return calculator.PendingClaims(p.attempts), nil
}

func (p *fakePlatform) Approve(ctx context.Context, userID string, amount decimal.Decimal) error {
	p.mu.Lock()
	p.calls = append(p.calls, approveCall{userID: userID, amount: amount})
	block, started := p.block, p.started
	p.mu.Unlock()

	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.payErr != nil {
		return p.payErr
	}
	for i := range p.attempts {
		if p.attempts[i].UserID == userID {
			p.attempts[i].Status = models.StatusApproved
		}
	}
	return nil
}

func (p *fakePlatform) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newPlatform() *fakePlatform {
	return &fakePlatform{attempts: []models.Attempt{
		{ID: "1", UserID: "A", Score: decimal.NewFromInt(5), Status: models.StatusPending},
		{ID: "2", UserID: "A", Score: decimal.NewFromInt(3), Status: models.StatusPending},
		{ID: "3", UserID: "B", Score: decimal.NewFromInt(10), Status: models.StatusApproved},
	}}
}

func newController(t *testing.T, p *fakePlatform) *Controller {
	t.Helper()
	c := New(p, p, nil)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return c
}

func hasClaim(v View, userID string) bool {
	_, ok := calculator.FindClaim(v.Claims, userID)
	return ok
}

func TestOpen_DefaultsAmountToTotal(t *testing.T) {
	c := newController(t, newPlatform())

	if err := c.Open("A"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	v := c.View()
	if v.State != Reviewing || v.Amount != "8" || !v.ConfirmEnabled {
		t.Errorf("unexpected view: %+v", v)
	}

	if err := c.Open("A"); !errors.Is(err, ErrDialogOpen) {
		t.Errorf("second Open: got %v", err)
	}
}

func TestOpen_UnknownClaim(t *testing.T) {
	c := newController(t, newPlatform())
	if err := c.Open("B"); !errors.Is(err, ErrUnknownClaim) {
		t.Errorf("expected ErrUnknownClaim for approved-only user, got %v", err)
	}
	if c.View().State != Idle {
		t.Error("state changed on failed Open")
	}
}

func TestConfirm_OverrideAmountSingleCall(t *testing.T) {
	p := newPlatform()
	p.block = make(chan struct{})
	p.started = make(chan struct{})
	c := newController(t, p)

	c.Open("A")
	if err := c.SetAmount("1"); err != nil {
		t.Fatalf("SetAmount failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Confirm(context.Background()) }()
	<-p.started

	v := c.View()
	if v.State != Submitting || v.ConfirmEnabled {
		t.Errorf("expected Submitting with confirm disabled, got %+v", v)
	}
	if err := c.Confirm(context.Background()); !errors.Is(err, ErrSubmitting) {
		t.Errorf("second confirm: got %v", err)
	}
	if err := c.Cancel(); !errors.Is(err, ErrNotCancellable) {
		t.Errorf("cancel while submitting: got %v", err)
	}
	if err := c.SetAmount("2"); !errors.Is(err, ErrSubmitting) {
		t.Errorf("edit while submitting: got %v", err)
	}

	close(p.block)
	if err := <-done; err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if p.callCount() != 1 {
		t.Fatalf("expected exactly 1 call, got %d", p.callCount())
	}
	call := p.calls[0]
	if call.userID != "A" || !call.amount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("unexpected call: %+v", call)
	}
}

func TestConfirm_SuccessRemovesClaim(t *testing.T) {
	p := newPlatform()
	c := newController(t, p)

	var settled []string
	c.OnSettled(func(userID string) {
		settled = append(settled, userID)
		c.Refresh(context.Background())
	})

	c.Open("A")
	if err := c.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	v := c.View()
	if v.State != Idle || v.Err != nil {
		t.Errorf("expected clean Idle, got %+v", v)
	}
	if hasClaim(v, "A") {
		t.Error("claim A still listed after settlement")
	}
	if len(settled) != 1 || settled[0] != "A" {
		t.Errorf("OnSettled calls = %v", settled)
	}

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hasClaim(c.View(), "A") {
		t.Error("claim A present on next fetch")
	}
}

func TestConfirm_FailureKeepsDialog(t *testing.T) {
	p := newPlatform()
	p.payErr = &settlement.SettlementError{UserID: "A", Err: errors.New("network down")}
	c := newController(t, p)

	c.Open("A")
	err := c.Confirm(context.Background())
	var settleErr *settlement.SettlementError
	if !errors.As(err, &settleErr) {
		t.Fatalf("expected SettlementError, got %v", err)
	}

	v := c.View()
	if v.State != Reviewing || !v.ConfirmEnabled || v.Err == nil {
		t.Errorf("expected Reviewing with error and confirm enabled, got %+v", v)
	}
	if v.Amount != "8" {
		t.Errorf("amount lost on failure: %q", v.Amount)
	}

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !hasClaim(c.View(), "A") {
		t.Error("claim A missing after failed settlement")
	}

	p.mu.Lock()
	p.payErr = nil
	p.mu.Unlock()
	if err := c.Confirm(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if p.callCount() != 2 {
		t.Errorf("expected 2 calls, got %d", p.callCount())
	}
}

func TestConfirm_ValidationFailure(t *testing.T) {
	tests := []string{"", "abc", "0", "-1"}

	for _, amount := range tests {
		t.Run(amount, func(t *testing.T) {
			p := newPlatform()
			c := newController(t, p)
			c.Open("A")
			c.SetAmount(amount)

			if err := c.Confirm(context.Background()); !errors.Is(err, settlement.ErrInvalidAmount) {
				t.Errorf("expected ErrInvalidAmount, got %v", err)
			}
			if c.View().State != Reviewing {
				t.Error("dialog closed on validation failure")
			}
			if p.callCount() != 0 {
				t.Error("validation failure issued a call")
			}
		})
	}
}

func TestRefresh_FailureKeepsStaleList(t *testing.T) {
	p := newPlatform()
	c := newController(t, p)

	p.mu.Lock()
	p.fetchErr = errors.New("502 bad gateway")
	p.mu.Unlock()

	err := c.Refresh(context.Background())
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	v := c.View()
	if !hasClaim(v, "A") {
		t.Error("stale list dropped on fetch failure")
	}
	if v.Err == nil {
		t.Error("fetch error not surfaced")
	}
}

func TestCancel(t *testing.T) {
	c := newController(t, newPlatform())

	if err := c.Cancel(); !errors.Is(err, ErrNoDialog) {
		t.Errorf("cancel in Idle: got %v", err)
	}
	c.Open("A")
	c.SetAmount("2")
	if err := c.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	v := c.View()
	if v.State != Idle || v.Amount != "" {
		t.Errorf("unexpected view after cancel: %+v", v)
	}
	if err := c.Confirm(context.Background()); !errors.Is(err, ErrNoDialog) {
		t.Errorf("confirm in Idle: got %v", err)
	}
}
