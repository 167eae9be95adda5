package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
)

type stubAuth struct{}

func (stubAuth) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return connect.NewResponse(&api.LoginResponse{Token: "tok"}), nil
}

func (stubAuth) Logout(ctx context.Context, req *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error) {
	return connect.NewResponse(&api.LogoutResponse{}), nil
}

func (stubAuth) GetCurrentOperator(ctx context.Context, req *connect.Request[api.GetCurrentOperatorRequest]) (*connect.Response[api.GetCurrentOperatorResponse], error) {
	return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("no session"))
}

type stubClaims struct{ api.ClaimServiceHandler }

func (stubClaims) ListClaims(ctx context.Context, req *connect.Request[api.ListClaimsRequest]) (*connect.Response[api.ListClaimsResponse], error) {
	return connect.NewResponse(&api.ListClaimsResponse{Claims: []api.Claim{{UserID: "A"}}}), nil
}

func newTestRouter(health func(context.Context) error) *httptest.Server {
	h := New(Deps{
		Auth:           stubAuth{},
		Claims:         stubClaims{},
		Health:         health,
		AllowedOrigins: []string{"*"},
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return httptest.NewServer(h)
}

func TestHealthz(t *testing.T) {
	server := newTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHealthz_Unhealthy(t *testing.T) {
	server := newTestRouter(func(context.Context) error { return errors.New("db down") })
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(body), "db down") {
		t.Errorf("unexpected response %d: %s", resp.StatusCode, body)
	}
}

func TestMetrics(t *testing.T) {
	server := newTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "rewards_admin_") {
		t.Error("expected rewards_admin metrics")
	}
}

func TestConnectRoutes(t *testing.T) {
	server := newTestRouter(nil)
	defer server.Close()
	ctx := context.Background()

	claims := api.NewClaimServiceClient(http.DefaultClient, server.URL)
	resp, err := claims.ListClaims(ctx, connect.NewRequest(&api.ListClaimsRequest{}))
	if err != nil {
		t.Fatalf("ListClaims failed: %v", err)
	}
	if len(resp.Msg.Claims) != 1 {
		t.Errorf("unexpected claims: %+v", resp.Msg.Claims)
	}

	authClient := api.NewAuthServiceClient(http.DefaultClient, server.URL)
	if _, err := authClient.GetCurrentOperator(ctx, connect.NewRequest(&api.GetCurrentOperatorRequest{})); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}

	plain, err := http.Post(server.URL+api.ClaimServiceListClaimsProcedure, "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer plain.Body.Close()
	body, _ := io.ReadAll(plain.Body)
	if plain.StatusCode != http.StatusOK || !strings.Contains(string(body), `"userId":"A"`) {
		t.Errorf("plain JSON call: %d %s", plain.StatusCode, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestRouter(nil)
	defer server.Close()

	resp, err := http.Get(server.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
