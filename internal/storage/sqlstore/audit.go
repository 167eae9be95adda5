package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

const defaultAuditLimit = 100

type auditRow struct {
	ID            string `db:"id"`
	SessionID     string `db:"session_id"`
	OperatorEmail string `db:"operator_email"`
	Kind          string `db:"kind"`
	UserID        string `db:"user_id"`
	Amount        string `db:"amount"`
	Outcome       string `db:"outcome"`
	Error         string `db:"error"`
	CreatedAt     int64  `db:"created_at"`
}

// AppendAudit persists a new audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO audit_entries (id, session_id, operator_email, kind, user_id, amount, outcome, error, created_at)
		 VALUES (:id, :session_id, :operator_email, :kind, :user_id, :amount, :outcome, :error, :created_at)`,
		auditRow{
			ID:            entry.ID,
			SessionID:     entry.SessionID,
			OperatorEmail: entry.OperatorEmail,
			Kind:          string(entry.Kind),
			UserID:        entry.UserID,
			Amount:        entry.Amount.String(),
			Outcome:       string(entry.Outcome),
			Error:         entry.Error,
			CreatedAt:     entry.CreatedAt.Unix(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListAudit retrieves the newest audit entries first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT id, session_id, operator_email, kind, user_id, amount, outcome, error, created_at
		 FROM audit_entries ORDER BY created_at DESC, id DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	entries := make([]models.AuditEntry, 0, len(rows))
	for _, r := range rows {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("audit entry %s has invalid amount %q: %w", r.ID, r.Amount, err)
		}
		entries = append(entries, models.AuditEntry{
			ID:            r.ID,
			SessionID:     r.SessionID,
			OperatorEmail: r.OperatorEmail,
			Kind:          models.SettlementKind(r.Kind),
			UserID:        r.UserID,
			Amount:        amount,
			Outcome:       models.AuditOutcome(r.Outcome),
			Error:         r.Error,
			CreatedAt:     time.Unix(r.CreatedAt, 0).UTC(),
		})
	}
	return entries, nil
}
