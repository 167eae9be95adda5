package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

func testSession() *models.Session {
	return &models.Session{ID: "s1", PlatformToken: "platform-token"}
}

func newTestClient(t *testing.T, endpoint string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Options{
		BaseURL:            server.URL + "/api",
		Timeout:            2 * time.Second,
		SettlementEndpoint: endpoint,
	})
}

func TestPendingAttempts(t *testing.T) {
	client := newTestClient(t, EndpointApproveRequest, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/payment/pending-requests" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer platform-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"claims":[
			{"_id":"1","user":{"_id":"A","name":"Alice"},"score":5,"status":"Pending"},
			{"_id":"2","user":"A","score":"3","status":"Pending"},
			{"_id":"3","user":{"_id":"B","name":"Bob"},"score":10,"status":"Approved"},
			{"_id":"4","score":1,"status":"Pending"},
			"garbage"
		]}`)
	})

	attempts, err := client.PendingAttempts(context.Background(), testSession())
	if err != nil {
		t.Fatalf("PendingAttempts failed: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 normalized attempts, got %d: %+v", len(attempts), attempts)
	}
	if attempts[1].UserID != "A" || !attempts[1].Score.Equal(decimal.NewFromInt(3)) {
		t.Errorf("unexpected second attempt: %+v", attempts[1])
	}
}

func TestPendingAttempts_RequiresSession(t *testing.T) {
	client := New(Options{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.PendingAttempts(context.Background(), nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestPendingAttempts_ServerError(t *testing.T) {
	client := newTestClient(t, EndpointApproveRequest, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"jwt expired"}`)
	})

	_, err := client.PendingAttempts(context.Background(), testSession())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "jwt expired" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if !IsUnauthorized(err) {
		t.Error("expected IsUnauthorized")
	}
}

func TestSettle_ApproveRequest(t *testing.T) {
	var calls int32
	client := newTestClient(t, EndpointApproveRequest, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/api/payment/approve-request/A" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["amount"] != "0.000001" {
			t.Errorf("amount = %v, want \"0.000001\"", body["amount"])
		}
		io.WriteString(w, `{"success":true}`)
	})

	err := client.Settle(context.Background(), testSession(), models.SettlementRequest{
		ClaimUserID: "A",
		Amount:      decimal.RequireFromString("0.000001"),
	})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
}

func TestSettle_TransferEndpoint(t *testing.T) {
	client := newTestClient(t, EndpointTransfer, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/payment/transfer" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body transferBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.UserID != "A" || !body.Amount.Equal(decimal.NewFromInt(1)) {
			t.Errorf("unexpected body: %+v", body)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := client.Settle(context.Background(), testSession(), models.SettlementRequest{
		ClaimUserID: "A",
		Amount:      decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
}

func TestSettle_Rejected(t *testing.T) {
	client := newTestClient(t, EndpointApproveRequest, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"message":"insufficient treasury balance"}`)
	})

	err := client.Settle(context.Background(), testSession(), models.SettlementRequest{
		ClaimUserID: "A",
		Amount:      decimal.NewFromInt(1),
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.Rejected {
		t.Fatalf("expected rejected APIError, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	client := newTestClient(t, EndpointApproveRequest, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"users":[{"_id":"u1","name":"Alice","wallet_address":"0xabc"},{"name":"ghost"}],"totalPages":3}`)
	})

	page, err := client.ListUsers(context.Background(), testSession(), 2, 5)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(page.Users) != 1 || page.Users[0].WalletAddress != "0xabc" {
		t.Errorf("unexpected users: %+v", page.Users)
	}
	if page.Page != 2 || page.TotalPages != 3 {
		t.Errorf("unexpected paging: %+v", page)
	}
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, EndpointApproveRequest, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a bearer token")
		}
		var body loginBody
		json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			io.WriteString(w, `{"success":false,"message":"Invalid Credentials"}`)
			return
		}
		io.WriteString(w, `{"success":true,"token":"tok","user":{"_id":"op1","name":"Ops"}}`)
	})

	res, err := client.Login(context.Background(), "ops@example.com", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Token != "tok" || res.Operator.ID != "op1" || res.Operator.Email != "ops@example.com" {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := client.Login(context.Background(), "ops@example.com", "wrong"); !errors.Is(err, ErrLoginRejected) {
		t.Errorf("expected ErrLoginRejected, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := New(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	err := client.Transfer(context.Background(), testSession(), models.SettlementRequest{
		ClaimUserID: "A",
		Amount:      decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
