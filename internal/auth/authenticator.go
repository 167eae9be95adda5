package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/platform"
)

// ErrInvalidCredentials is returned when the email or password is rejected.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticator defines the interface for operator authentication.
// This abstraction allows swapping the credential check (platform login,
// SSO, etc.) without changing the service layer code.
type Authenticator interface {
	// Authenticate verifies the operator's credentials and returns an
	// unsaved session on success.
	Authenticate(ctx context.Context, email, password string) (*models.Session, error)
}

// PlatformLogin is the platform call used to check credentials.
type PlatformLogin interface {
	Login(ctx context.Context, email, password string) (platform.LoginResult, error)
}

// PlatformAuthenticator logs operators in through the learning platform.
// The session lasts for ttl, or until the platform token expires if that
// comes first.
type PlatformAuthenticator struct {
	platform PlatformLogin
	ttl      time.Duration
	now      func() time.Time
}

// NewPlatformAuthenticator creates an Authenticator backed by the platform.
func NewPlatformAuthenticator(p PlatformLogin, ttl time.Duration) *PlatformAuthenticator {
	return &PlatformAuthenticator{
		platform: p,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Authenticate implements Authenticator.
func (a *PlatformAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	res, err := a.platform.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, platform.ErrLoginRejected) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := a.now().UTC().Truncate(time.Second)
	expires := now.Add(a.ttl)
	if exp, ok := PlatformTokenExpiry(res.Token); ok && exp.Before(expires) {
		expires = exp
	}

	return &models.Session{
		Operator:      res.Operator,
		PlatformToken: res.Token,
		CreatedAt:     now,
		ExpiresAt:     expires,
	}, nil
}
