package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/Aayan-infotech/bitcoin-admin/internal/auth"
	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/storage"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionKey contextKey = "session"
	slotKey    contextKey = "session-slot"
)

// sessionSlot lets an outer interceptor see the session resolved further in.
type sessionSlot struct {
	sess *models.Session
}

// ErrSessionExpired is returned for a token whose session has expired or
// been logged out.
var ErrSessionExpired = errors.New("session expired")

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFrom returns the session attached by RequireAuth.
func SessionFrom(ctx context.Context) (*models.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*models.Session)
	return sess, ok && sess != nil
}

// SessionResolver turns a dashboard token into its stored session.
type SessionResolver struct {
	jwt      *auth.JWTManager
	sessions storage.SessionStore
	now      func() time.Time
}

// NewSessionResolver creates a SessionResolver.
func NewSessionResolver(jwtManager *auth.JWTManager, sessions storage.SessionStore) *SessionResolver {
	return &SessionResolver{
		jwt:      jwtManager,
		sessions: sessions,
		now:      time.Now,
	}
}

// Resolve validates token and loads its session. Deleted and expired
// sessions are rejected even when the token itself is still valid.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}

	claims, err := r.jwt.Validate(token)
	if err != nil {
		return nil, err
	}

	sess, err := r.sessions.GetSession(ctx, claims.SessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess.Expired(r.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", auth.ErrInvalidToken
	}
	return strings.TrimSpace(token), nil
}

// RequireAuth returns an interceptor that requires a valid dashboard token
// on every procedure except the listed public ones. The resolved session is
// available to handlers through SessionFrom.
func RequireAuth(resolver *SessionResolver, public ...string) connect.UnaryInterceptorFunc {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if open[req.Spec().Procedure] {
				return next(ctx, req)
			}

			token, err := BearerToken(req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			sess, err := resolver.Resolve(ctx, token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, ErrSessionExpired) || errors.Is(err, auth.ErrMissingToken) {
					return nil, connect.NewError(connect.CodeUnauthenticated, err)
				}
				return nil, connect.NewError(connect.CodeInternal, err)
			}

			if slot, ok := ctx.Value(slotKey).(*sessionSlot); ok {
				slot.sess = sess
			}
			return next(WithSession(ctx, sess), req)
		}
	}
}
