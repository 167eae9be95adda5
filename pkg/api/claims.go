package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const ClaimServiceName = "rewardsadmin.v1.ClaimService"

const (
	ClaimServiceListClaimsProcedure       = "/rewardsadmin.v1.ClaimService/ListClaims"
	ClaimServiceApproveClaimProcedure     = "/rewardsadmin.v1.ClaimService/ApproveClaim"
	ClaimServiceSendRewardProcedure       = "/rewardsadmin.v1.ClaimService/SendReward"
	ClaimServiceListUsersProcedure        = "/rewardsadmin.v1.ClaimService/ListUsers"
	ClaimServiceListAuditEntriesProcedure = "/rewardsadmin.v1.ClaimService/ListAuditEntries"
)

// ClaimServiceHandler is implemented by the server.
type ClaimServiceHandler interface {
	ListClaims(context.Context, *connect.Request[ListClaimsRequest]) (*connect.Response[ListClaimsResponse], error)
	ApproveClaim(context.Context, *connect.Request[ApproveClaimRequest]) (*connect.Response[ApproveClaimResponse], error)
	SendReward(context.Context, *connect.Request[SendRewardRequest]) (*connect.Response[SendRewardResponse], error)
	ListUsers(context.Context, *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error)
	ListAuditEntries(context.Context, *connect.Request[ListAuditEntriesRequest]) (*connect.Response[ListAuditEntriesResponse], error)
}

// NewClaimServiceHandler builds an HTTP handler for svc and returns the
// path prefix to mount it on.
func NewClaimServiceHandler(svc ClaimServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	listClaims := connect.NewUnaryHandler(ClaimServiceListClaimsProcedure, svc.ListClaims, opts...)
	approveClaim := connect.NewUnaryHandler(ClaimServiceApproveClaimProcedure, svc.ApproveClaim, opts...)
	sendReward := connect.NewUnaryHandler(ClaimServiceSendRewardProcedure, svc.SendReward, opts...)
	listUsers := connect.NewUnaryHandler(ClaimServiceListUsersProcedure, svc.ListUsers, opts...)
	listAudit := connect.NewUnaryHandler(ClaimServiceListAuditEntriesProcedure, svc.ListAuditEntries, opts...)

	return "/" + ClaimServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ClaimServiceListClaimsProcedure:
			listClaims.ServeHTTP(w, r)
		case ClaimServiceApproveClaimProcedure:
			approveClaim.ServeHTTP(w, r)
		case ClaimServiceSendRewardProcedure:
			sendReward.ServeHTTP(w, r)
		case ClaimServiceListUsersProcedure:
			listUsers.ServeHTTP(w, r)
		case ClaimServiceListAuditEntriesProcedure:
			listAudit.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// ClaimServiceClient calls the ClaimService.
type ClaimServiceClient interface {
	ListClaims(context.Context, *connect.Request[ListClaimsRequest]) (*connect.Response[ListClaimsResponse], error)
	ApproveClaim(context.Context, *connect.Request[ApproveClaimRequest]) (*connect.Response[ApproveClaimResponse], error)
	SendReward(context.Context, *connect.Request[SendRewardRequest]) (*connect.Response[SendRewardResponse], error)
	ListUsers(context.Context, *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error)
	ListAuditEntries(context.Context, *connect.Request[ListAuditEntriesRequest]) (*connect.Response[ListAuditEntriesResponse], error)
}

type claimServiceClient struct {
	listClaims   *connect.Client[ListClaimsRequest, ListClaimsResponse]
	approveClaim *connect.Client[ApproveClaimRequest, ApproveClaimResponse]
	sendReward   *connect.Client[SendRewardRequest, SendRewardResponse]
	listUsers    *connect.Client[ListUsersRequest, ListUsersResponse]
	listAudit    *connect.Client[ListAuditEntriesRequest, ListAuditEntriesResponse]
}

// NewClaimServiceClient creates a client for the server at baseURL.
func NewClaimServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ClaimServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &claimServiceClient{
		listClaims:   connect.NewClient[ListClaimsRequest, ListClaimsResponse](httpClient, baseURL+ClaimServiceListClaimsProcedure, opts...),
		approveClaim: connect.NewClient[ApproveClaimRequest, ApproveClaimResponse](httpClient, baseURL+ClaimServiceApproveClaimProcedure, opts...),
		sendReward:   connect.NewClient[SendRewardRequest, SendRewardResponse](httpClient, baseURL+ClaimServiceSendRewardProcedure, opts...),
		listUsers:    connect.NewClient[ListUsersRequest, ListUsersResponse](httpClient, baseURL+ClaimServiceListUsersProcedure, opts...),
		listAudit:    connect.NewClient[ListAuditEntriesRequest, ListAuditEntriesResponse](httpClient, baseURL+ClaimServiceListAuditEntriesProcedure, opts...),
	}
}

func (c *claimServiceClient) ListClaims(ctx context.Context, req *connect.Request[ListClaimsRequest]) (*connect.Response[ListClaimsResponse], error) {
	return c.listClaims.CallUnary(ctx, req)
}

func (c *claimServiceClient) ApproveClaim(ctx context.Context, req *connect.Request[ApproveClaimRequest]) (*connect.Response[ApproveClaimResponse], error) {
	return c.approveClaim.CallUnary(ctx, req)
}

func (c *claimServiceClient) SendReward(ctx context.Context, req *connect.Request[SendRewardRequest]) (*connect.Response[SendRewardResponse], error) {
	return c.sendReward.CallUnary(ctx, req)
}

func (c *claimServiceClient) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}

func (c *claimServiceClient) ListAuditEntries(ctx context.Context, req *connect.Request[ListAuditEntriesRequest]) (*connect.Response[ListAuditEntriesResponse], error) {
	return c.listAudit.CallUnary(ctx, req)
}
