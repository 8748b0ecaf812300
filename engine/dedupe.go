/*
dedupe.go - Payment deduplicator

PURPOSE:
  Carrier feeds repeat themselves: the same remittance can arrive in more
  than one file drop. This stage collapses raw remittance rows into one
  LogicalPayment per distinct (policy_id, paid_date, amount) key so a
  repeated row never double-counts earnings.

KEYING:
  Dates and amounts are compared for exact numeric equality, no fuzz
  tolerance. "200" and "200.00" are the same amount; "200" and "200.01"
  are two different payments.

STATUS CONFLICTS:
  Raw rows sharing a key may carry different statuses (a payment observed
  once as active and once as cancelled). The conflict is resolved by a
  pluggable StatusResolver; the default keeps the alphabetically last
  status, so "cancelled" beats "active". This tie-break is a provisional
  simplification, not a confirmed carrier-feed rule; swap the resolver
  rather than editing this file if real feeds turn out to carry a usable
  ingestion timestamp.

SEE ALSO:
  - resolve.go: consumes the deduplicated payments, sorted per policy
*/
package engine

import "sort"

// =============================================================================
// STATUS RESOLVER - Pluggable conflict tie-break
// =============================================================================

// StatusResolver picks the winning status when two observations of the
// same logical payment disagree. It must be commutative and associative so
// the outcome is independent of input order.
type StatusResolver func(a, b Status) Status

// LastAlphabetical keeps the status that sorts alphabetically last:
// "cancelled" beats "active". This is the engine default.
func LastAlphabetical(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// =============================================================================
// DEDUPLICATION
// =============================================================================

// paymentKey is the identity of a logical payment. The amount component is
// a fixed-precision rendering so numerically equal decimals collide;
// remittance amounts are cent-granularity, four places is exact.
type paymentKey struct {
	policyID string
	paidDate string
	amount   string
}

// DeduplicatePayments collapses the normalized remittance records into one
// LogicalPayment per distinct (policy_id, paid_date, amount) key. The
// result is sorted by (policy_id, paid_date) as the resolver requires for
// effective-status determination. Running the output through again is a
// no-op: deduplication is idempotent.
func DeduplicatePayments(records []RemittanceRecord, resolve StatusResolver) []LogicalPayment {
	if resolve == nil {
		resolve = LastAlphabetical
	}

	byKey := make(map[paymentKey]*LogicalPayment, len(records))
	for _, r := range records {
		key := paymentKey{
			policyID: r.PolicyID,
			paidDate: r.PaidDate.String(),
			amount:   r.Amount.StringFixed(4),
		}
		existing, ok := byKey[key]
		if !ok {
			byKey[key] = &LogicalPayment{
				PolicyID: r.PolicyID,
				AgentID:  r.AgentID,
				PaidDate: r.PaidDate,
				Amount:   r.Amount,
				Status:   r.Status,
			}
			continue
		}
		existing.Status = resolve(existing.Status, r.Status)
		// Keep the agent deterministic if duplicates disagree; a wrong
		// agent still trips the resolver's consistency check later.
		if r.AgentID > existing.AgentID {
			existing.AgentID = r.AgentID
		}
	}

	payments := make([]LogicalPayment, 0, len(byKey))
	for _, p := range byKey {
		payments = append(payments, *p)
	}
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PolicyID != payments[j].PolicyID {
			return payments[i].PolicyID < payments[j].PolicyID
		}
		if !payments[i].PaidDate.Equal(payments[j].PaidDate) {
			return payments[i].PaidDate.Before(payments[j].PaidDate)
		}
		return payments[i].Amount.LessThan(payments[j].Amount)
	})
	return payments
}
