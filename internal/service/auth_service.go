package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/Aayan-infotech/bitcoin-admin/internal/auth"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/storage"
	"github.com/Aayan-infotech/bitcoin-admin/pkg/api"
)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	sessions      storage.SessionStore
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, sessions storage.SessionStore, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		sessions:      sessions,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Login authenticates an operator against the platform, stores a session
// and returns a dashboard token for it.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	sess, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
		}
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		s.logger.Error("Failed to store session", "email", sess.Operator.Email, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.jwtManager.Generate(sess)
	if err != nil {
		s.logger.Error("Failed to generate token", "session_id", sess.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Operator logged in", "email", sess.Operator.Email, "session_id", sess.ID, "expires_at", sess.ExpiresAt)
	return connect.NewResponse(&api.LoginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		Operator:  toAPIOperator(sess.Operator),
	}), nil
}

// Logout deletes the caller's session. The token stops working at once.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteSession(ctx, sess.ID); err != nil {
		s.logger.Error("Failed to delete session", "session_id", sess.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Operator logged out", "email", sess.Operator.Email, "session_id", sess.ID)
	return connect.NewResponse(&api.LogoutResponse{}), nil
}

// GetCurrentOperator returns the caller's operator account.
func (s *AuthService) GetCurrentOperator(ctx context.Context, req *connect.Request[api.GetCurrentOperatorRequest]) (*connect.Response[api.GetCurrentOperatorResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetCurrentOperatorResponse{
		Operator:  toAPIOperator(sess.Operator),
		ExpiresAt: sess.ExpiresAt,
	}), nil
}

func toAPIOperator(op models.Operator) api.Operator {
	return api.Operator{ID: op.ID, Name: op.Name, Email: op.Email}
}
