package platform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

// rawAttempt is a claim record as the platform sends it. user is either an
// object or a bare ID string, and score may be a number or a string.
type rawAttempt struct {
	ID        string          `json:"_id"`
	AltID     string          `json:"id"`
	User      json.RawMessage `json:"user"`
	UserID    string          `json:"userId"`
	Score     json.RawMessage `json:"score"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"createdAt"`
}

type rawUserRef struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
	Name  string `json:"name"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// resolveUser extracts the user ID and name from the user field, falling
// back to userId.
func (r rawAttempt) resolveUser() (string, string, error) {
	var id, name string

	if !isNull(r.User) {
		switch bytes.TrimSpace(r.User)[0] {
		case '"':
			if err := json.Unmarshal(r.User, &id); err != nil {
				return "", "", fmt.Errorf("bad user id: %w", err)
			}
		case '{':
			var ref rawUserRef
			if err := json.Unmarshal(r.User, &ref); err != nil {
				return "", "", fmt.Errorf("bad user object: %w", err)
			}
			id = ref.ID
			if id == "" {
				id = ref.AltID
			}
			name = ref.Name
		default:
			return "", "", errors.New("user must be an object or a string")
		}
	}

	if id == "" {
		id = r.UserID
	}
	if id == "" {
		return "", "", errors.New("missing user id")
	}
	return id, name, nil
}

// normalizeAttempt converts one raw record into an Attempt.
func normalizeAttempt(r rawAttempt) (models.Attempt, error) {
	id := r.ID
	if id == "" {
		id = r.AltID
	}
	if id == "" {
		return models.Attempt{}, errors.New("missing attempt id")
	}

	userID, name, err := r.resolveUser()
	if err != nil {
		return models.Attempt{}, err
	}

	if isNull(r.Score) {
		return models.Attempt{}, errors.New("missing score")
	}
	var score decimal.Decimal
	if err := json.Unmarshal(r.Score, &score); err != nil {
		return models.Attempt{}, fmt.Errorf("bad score: %w", err)
	}
	if score.IsNegative() {
		return models.Attempt{}, fmt.Errorf("negative score %s", score)
	}

	status, err := models.ParseAttemptStatus(r.Status)
	if err != nil {
		return models.Attempt{}, err
	}

	attempt := models.Attempt{
		ID:              id,
		UserID:          userID,
		UserDisplayName: name,
		Score:           score,
		Status:          status,
	}
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			attempt.CreatedAt = t.UTC()
		}
	}
	return attempt, nil
}
