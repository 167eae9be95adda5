// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SessionStore persists operator sessions.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type SessionStore interface {
	// CreateSession persists a new session. The session.ID field is
	// populated by the store if empty.
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// DeleteSession removes a session. Deleting a missing session is not
	// an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteExpiredSessions removes sessions that expired before now and
	// returns how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// AuditStore journals operator payout actions.
type AuditStore interface {
	// AppendAudit persists an entry. ID and CreatedAt are filled in if
	// empty.
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error

	// ListAudit returns the newest entries first, at most limit of them.
	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// Store combines every storage concern of the service.
type Store interface {
	SessionStore
	AuditStore

	// Close releases any resources held by the store.
	Close() error
}
