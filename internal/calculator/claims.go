// Package calculator turns raw reward attempts into per-user claims.
package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Aayan-infotech/bitcoin-admin/internal/models"
)

// AggregateClaims computes one AggregatedClaim per user from a set of
// attempts. The input may be in any order and may mix statuses; it is not
// modified.
//
// Algorithm:
// - Skip attempts that are not Pending
// - Group the rest by UserID
// - For each group: total = Σ score, count = |group|
// - Display name: the smallest non-empty name in the group
// - LatestAttemptAt: the newest CreatedAt in the group
//
// Every step is order-independent, so any permutation of the same attempts
// yields the same map.
func AggregateClaims(attempts []models.Attempt) map[string]models.AggregatedClaim {
	claims := make(map[string]models.AggregatedClaim)

	for _, a := range attempts {
		if !a.IsPending() {
			continue
		}

		claim, exists := claims[a.UserID]
		if !exists {
			claim = models.AggregatedClaim{
				UserID:     a.UserID,
				TotalScore: decimal.Zero,
			}
		}

		claim.TotalScore = claim.TotalScore.Add(a.Score)
		claim.AttemptCount++

		if a.UserDisplayName != "" &&
			(claim.UserDisplayName == "" || a.UserDisplayName < claim.UserDisplayName) {
			claim.UserDisplayName = a.UserDisplayName
		}
		if a.CreatedAt.After(claim.LatestAttemptAt) {
			claim.LatestAttemptAt = a.CreatedAt
		}

		claims[a.UserID] = claim
	}

	return claims
}

// SortedClaims returns the claims ordered by display name, then user ID.
// Claims without a display name sort by user ID after the named ones.
func SortedClaims(claims map[string]models.AggregatedClaim) []models.AggregatedClaim {
	out := make([]models.AggregatedClaim, 0, len(claims))
	for _, c := range claims {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.UserDisplayName == "") != (b.UserDisplayName == "") {
			return a.UserDisplayName != ""
		}
		if a.UserDisplayName != b.UserDisplayName {
			return a.UserDisplayName < b.UserDisplayName
		}
		return a.UserID < b.UserID
	})

	return out
}

// PendingClaims aggregates and sorts in one step.
func PendingClaims(attempts []models.Attempt) []models.AggregatedClaim {
	return SortedClaims(AggregateClaims(attempts))
}

// FindClaim returns the claim for userID, if present.
func FindClaim(claims []models.AggregatedClaim, userID string) (models.AggregatedClaim, bool) {
	for _, c := range claims {
		if c.UserID == userID {
			return c, true
		}
	}
	return models.AggregatedClaim{}, false
}
