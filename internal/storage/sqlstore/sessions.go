package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
	"github.com/Aayan-infotech/bitcoin-admin/internal/storage"
)

type sessionRow struct {
	ID            string `db:"id"`
	OperatorID    string `db:"operator_id"`
	OperatorName  string `db:"operator_name"`
	OperatorEmail string `db:"operator_email"`
	PlatformToken string `db:"platform_token"`
	CreatedAt     int64  `db:"created_at"`
	ExpiresAt     int64  `db:"expires_at"`
}

func (r sessionRow) model() *models.Session {
	return &models.Session{
		ID: r.ID,
		Operator: models.Operator{
			ID:    r.OperatorID,
			Name:  r.OperatorName,
			Email: r.OperatorEmail,
		},
		PlatformToken: r.PlatformToken,
		CreatedAt:     time.Unix(r.CreatedAt, 0).UTC(),
		ExpiresAt:     time.Unix(r.ExpiresAt, 0).UTC(),
	}
}

// CreateSession persists a new session.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO sessions (id, operator_id, operator_name, operator_email, platform_token, created_at, expires_at)
		 VALUES (:id, :operator_id, :operator_name, :operator_email, :platform_token, :created_at, :expires_at)`,
		sessionRow{
			ID:            session.ID,
			OperatorID:    session.Operator.ID,
			OperatorName:  session.Operator.Name,
			OperatorEmail: session.Operator.Email,
			PlatformToken: session.PlatformToken,
			CreatedAt:     session.CreatedAt.Unix(),
			ExpiresAt:     session.ExpiresAt.Unix(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT id, operator_id, operator_name, operator_email, platform_token, created_at, expires_at
		 FROM sessions WHERE id = ?`),
		sessionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return row.model(), nil
}

// DeleteSession removes a session by ID.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE id = ?"), sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose expiry is not after now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM sessions WHERE expires_at <= ?"), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return n, nil
}
