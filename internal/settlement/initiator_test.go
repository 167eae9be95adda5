package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

// fakeSettler records calls and optionally blocks until released.
type fakeSettler struct {
	mu       sync.Mutex
	calls    []models.SettlementRequest
	err      error
	block    chan struct{}
	started  chan string
	transfer int
}

func (f *fakeSettler) record(req models.SettlementRequest) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	block, started, err := f.block, f.started, f.err
	f.mu.Unlock()

	if started != nil {
		started <- req.ClaimUserID
	}
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeSettler) Settle(ctx context.Context, sess *models.Session, req models.SettlementRequest) error {
	return f.record(req)
}

func (f *fakeSettler) Transfer(ctx context.Context, sess *models.Session, req models.SettlementRequest) error {
	f.mu.Lock()
	f.transfer++
	f.mu.Unlock()
	return f.record(req)
}

func (f *fakeSettler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var (
	sess   = &models.Session{ID: "s", PlatformToken: "t"}
	claimA = models.AggregatedClaim{UserID: "A", TotalScore: decimal.NewFromInt(8), AttemptCount: 2}
	claimB = models.AggregatedClaim{UserID: "B", TotalScore: decimal.NewFromInt(3), AttemptCount: 1}
)

func TestApprove_SendsOperatorAmount(t *testing.T) {
	settler := &fakeSettler{}
	fixed := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ini := NewInitiator(settler, Options{Now: func() time.Time { return fixed }})

	req, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if settler.callCount() != 1 {
		t.Fatalf("expected 1 settlement call, got %d", settler.callCount())
	}
	got := settler.calls[0]
	if got.ClaimUserID != "A" || !got.Amount.Equal(decimal.NewFromInt(1)) {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.Kind != models.SettlementApprove {
		t.Errorf("kind = %q, want approve", got.Kind)
	}
	if !req.RequestedAt.Equal(fixed) {
		t.Errorf("RequestedAt = %v, want %v", req.RequestedAt, fixed)
	}
}

func TestApprove_SecondConfirmWhileInFlight(t *testing.T) {
	settler := &fakeSettler{block: make(chan struct{}), started: make(chan string, 1)}
	ini := NewInitiator(settler, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(1))
		done <- err
	}()

	<-settler.started
	if !ini.InFlight("A") {
		t.Fatal("expected A to be in flight")
	}

	_, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(1))
	if !errors.Is(err, ErrSettlementInFlight) {
		t.Fatalf("expected ErrSettlementInFlight, got %v", err)
	}
	if settler.callCount() != 1 {
		t.Fatalf("second confirm issued a call: %d calls", settler.callCount())
	}

	close(settler.block)
	if err := <-done; err != nil {
		t.Fatalf("first Approve failed: %v", err)
	}
	if ini.InFlight("A") {
		t.Error("guard not released after success")
	}
}

func TestApprove_GlobalLimit(t *testing.T) {
	settler := &fakeSettler{block: make(chan struct{}), started: make(chan string, 2)}
	ini := NewInitiator(settler, Options{MaxInFlight: 1})

	done := make(chan error, 1)
	go func() {
		_, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(1))
		done <- err
	}()
	<-settler.started

	if _, err := ini.Approve(context.Background(), sess, claimB, decimal.NewFromInt(1)); !errors.Is(err, ErrSettlementInFlight) {
		t.Errorf("expected global limit to reject B, got %v", err)
	}

	close(settler.block)
	<-done
}

func TestApprove_PerUserWithWiderLimit(t *testing.T) {
	settler := &fakeSettler{block: make(chan struct{}), started: make(chan string, 2)}
	ini := NewInitiator(settler, Options{MaxInFlight: 2})

	done := make(chan error, 2)
	go func() {
		_, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(1))
		done <- err
	}()
	<-settler.started

	go func() {
		_, err := ini.Approve(context.Background(), sess, claimB, decimal.NewFromInt(1))
		done <- err
	}()
	<-settler.started

	if _, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(2)); !errors.Is(err, ErrSettlementInFlight) {
		t.Errorf("expected per-user guard to reject A, got %v", err)
	}

	close(settler.block)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Errorf("settlement failed: %v", err)
		}
	}
	if settler.callCount() != 2 {
		t.Errorf("expected 2 calls, got %d", settler.callCount())
	}
}

func TestApprove_FailureReleasesGuard(t *testing.T) {
	netErr := errors.New("connection reset")
	settler := &fakeSettler{err: netErr}
	ini := NewInitiator(settler, Options{})

	var settled int
	ini.OnSettled(func(models.SettlementRequest) { settled++ })

	_, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(8))
	var settleErr *SettlementError
	if !errors.As(err, &settleErr) {
		t.Fatalf("expected SettlementError, got %v", err)
	}
	if settleErr.UserID != "A" || !errors.Is(err, netErr) {
		t.Errorf("unexpected error: %v", err)
	}
	if ini.InFlight("A") {
		t.Error("guard not released after failure")
	}
	if settled != 0 {
		t.Error("OnSettled must not fire on failure")
	}

	settler.mu.Lock()
	settler.err = nil
	settler.mu.Unlock()

	if _, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(8)); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if settled != 1 {
		t.Errorf("OnSettled fired %d times, want 1", settled)
	}
}

func TestApprove_Validation(t *testing.T) {
	settler := &fakeSettler{}
	ini := NewInitiator(settler, Options{})

	if _, err := ini.Approve(context.Background(), sess, claimA, decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: got %v", err)
	}
	if _, err := ini.Approve(context.Background(), sess, claimA, decimal.NewFromInt(-3)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: got %v", err)
	}
	if _, err := ini.Approve(context.Background(), sess, models.AggregatedClaim{}, decimal.NewFromInt(1)); !errors.Is(err, ErrMissingUser) {
		t.Errorf("missing user: got %v", err)
	}
	if settler.callCount() != 0 {
		t.Errorf("validation failures issued %d calls", settler.callCount())
	}
}

func TestApprove_IgnoresCallerCancellation(t *testing.T) {
	settler := &fakeSettler{block: make(chan struct{}), started: make(chan string, 1)}
	ini := NewInitiator(settler, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ini.Approve(ctx, sess, claimA, decimal.NewFromInt(1))
		done <- err
	}()
	<-settler.started
	cancel()

	if !ini.InFlight("A") {
		t.Error("cancelling the caller must not end an in-flight settlement")
	}
	close(settler.block)
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSend_UsesTransfer(t *testing.T) {
	settler := &fakeSettler{}
	ini := NewInitiator(settler, Options{})

	req, err := ini.Send(context.Background(), sess, " u9 ", decimal.RequireFromString("0.5"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if settler.transfer != 1 {
		t.Errorf("expected Transfer to be used, got %d transfer calls", settler.transfer)
	}
	if req.ClaimUserID != "u9" || req.Kind != models.SettlementTransfer {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "8", want: "8"},
		{in: " 1.5 ", want: "1.5"},
		{in: "0.000001", want: "0.000001"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Inf", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "1e3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) failed: %v", tt.in, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestApproveVerified_LookupRunsUnderReservation(t *testing.T) {
	settler := &fakeSettler{}
	ini := NewInitiator(settler, Options{})

	var reservedDuringLookup bool
	lookup := func(ctx context.Context, userID string) (models.AggregatedClaim, error) {
		reservedDuringLookup = ini.InFlight(userID)
		if _, err := ini.Approve(ctx, sess, claimA, decimal.NewFromInt(1)); !errors.Is(err, ErrSettlementInFlight) {
			t.Errorf("concurrent approval during lookup: got %v", err)
		}
		return claimA, nil
	}

	req, err := ini.ApproveVerified(context.Background(), sess, "A", decimal.NewFromInt(8), lookup)
	if err != nil {
		t.Fatalf("ApproveVerified failed: %v", err)
	}
	if !reservedDuringLookup {
		t.Error("user must be reserved while the claim is verified")
	}
	if req.Kind != models.SettlementApprove || !req.Amount.Equal(decimal.NewFromInt(8)) {
		t.Errorf("unexpected request: %+v", req)
	}
	if settler.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", settler.callCount())
	}
	if ini.InFlight("A") {
		t.Error("guard not released after settlement")
	}
}

func TestApproveVerified_NotPending(t *testing.T) {
	settler := &fakeSettler{}
	ini := NewInitiator(settler, Options{})

	var settled int
	ini.OnSettled(func(models.SettlementRequest) { settled++ })

	fetchErr := errors.New("platform down")
	tests := []struct {
		name    string
		lookErr error
	}{
		{name: "already paid", lookErr: ErrClaimNotPending},
		{name: "fetch failed", lookErr: fetchErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(context.Context, string) (models.AggregatedClaim, error) {
				return models.AggregatedClaim{}, tt.lookErr
			}
			_, err := ini.ApproveVerified(context.Background(), sess, "A", decimal.NewFromInt(8), lookup)
			if !errors.Is(err, tt.lookErr) {
				t.Errorf("expected %v, got %v", tt.lookErr, err)
			}
			if ini.InFlight("A") {
				t.Error("reservation not released")
			}
		})
	}

	if settler.callCount() != 0 || settled != 0 {
		t.Errorf("unverified claims paid: calls=%d settled=%d", settler.callCount(), settled)
	}

	// The global slot must be free again too.
	if _, err := ini.Approve(context.Background(), sess, claimB, decimal.NewFromInt(1)); err != nil {
		t.Errorf("slot leaked: %v", err)
	}
}
