package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const AuthServiceName = "rewardsadmin.v1.AuthService"

const (
	AuthServiceLoginProcedure              = "/rewardsadmin.v1.AuthService/Login"
	AuthServiceLogoutProcedure             = "/rewardsadmin.v1.AuthService/Logout"
	AuthServiceGetCurrentOperatorProcedure = "/rewardsadmin.v1.AuthService/GetCurrentOperator"
)

// AuthServiceHandler is implemented by the server.
type AuthServiceHandler interface {
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	Logout(context.Context, *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error)
	GetCurrentOperator(context.Context, *connect.Request[GetCurrentOperatorRequest]) (*connect.Response[GetCurrentOperatorResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler for svc and returns the path
// prefix to mount it on.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	login := connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...)
	logout := connect.NewUnaryHandler(AuthServiceLogoutProcedure, svc.Logout, opts...)
	current := connect.NewUnaryHandler(AuthServiceGetCurrentOperatorProcedure, svc.GetCurrentOperator, opts...)

	return "/" + AuthServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AuthServiceLoginProcedure:
			login.ServeHTTP(w, r)
		case AuthServiceLogoutProcedure:
			logout.ServeHTTP(w, r)
		case AuthServiceGetCurrentOperatorProcedure:
			current.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// AuthServiceClient calls the AuthService.
type AuthServiceClient interface {
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	Logout(context.Context, *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error)
	GetCurrentOperator(context.Context, *connect.Request[GetCurrentOperatorRequest]) (*connect.Response[GetCurrentOperatorResponse], error)
}

type authServiceClient struct {
	login   *connect.Client[LoginRequest, LoginResponse]
	logout  *connect.Client[LogoutRequest, LogoutResponse]
	current *connect.Client[GetCurrentOperatorRequest, GetCurrentOperatorResponse]
}

// NewAuthServiceClient creates a client for the server at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &authServiceClient{
		login:   connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		logout:  connect.NewClient[LogoutRequest, LogoutResponse](httpClient, baseURL+AuthServiceLogoutProcedure, opts...),
		current: connect.NewClient[GetCurrentOperatorRequest, GetCurrentOperatorResponse](httpClient, baseURL+AuthServiceGetCurrentOperatorProcedure, opts...),
	}
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *authServiceClient) GetCurrentOperator(ctx context.Context, req *connect.Request[GetCurrentOperatorRequest]) (*connect.Response[GetCurrentOperatorResponse], error) {
	return c.current.CallUnary(ctx, req)
}
