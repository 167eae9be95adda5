// Package models defines the core domain models for the rewards admin service.
//
// # Claim Models
//
// The reward workflow is built from three shapes:
//   - Attempt: one scored quiz completion reported by the learning platform
//   - AggregatedClaim: per-user summary of all Pending attempts
//   - SettlementRequest: an operator-confirmed payout for one claim
//
// Attempts come from the platform's claim record store and are never
// modified here. AggregatedClaim is a view recomputed on every fetch and
// never persisted. SettlementRequest lives for one platform call only.
//
// # Operator Models
//
//   - Operator: the platform account approving payouts
//   - Session: an operator's login, holding the platform bearer token
//   - AuditEntry: journal of operator actions and their outcome
//
// # Design Principles
//
// 1. **Normalize at the edge**: loosely typed platform payloads are turned
// into these types by the platform client; nothing inward sees raw JSON
// 2. **Exact amounts**: scores and payout amounts are decimals
// 3. **IDs as strings**: user IDs are the platform's opaque identifiers
package models
