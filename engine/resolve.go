/*
resolve.go - Policy resolver: one merged record per policy

PURPOSE:
  Joins CRM policy records to their deduplicated payment history and
  produces a single ResolvedPolicy per policy_id: total earned, remaining
  expected, effective status, submit date.

JOIN SEMANTICS:
  Outer join from the CRM side. A policy may have zero payments; it then
  carries no observed status and can never be advance-eligible. A payment
  with no matching CRM record is fatal (OrphanPaymentError): without the
  CRM row there is no ltv_expected to resolve against. All orphan policy
  ids found in a run are reported together.

AGENT OWNERSHIP:
  agent_id comes from the CRM record. A payment whose agent_id disagrees
  is a ConsistencyError, never silently overridden; that is a
  data-integrity problem for the upstream systems to settle.

VALUE RULES:
  earned_to_date     = signed sum of logical payments (claw-backs can
                       drive it negative, there is no floor)
  remaining_expected = max(ltv_expected - earned_to_date, 0). The floor is
                       deliberate: an agent cannot owe remaining value.
  effective_status   = status of the latest-paid-date payment; the status
                       resolver breaks same-day ties.
*/
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolvePolicies merges the CRM policy records with the deduplicated
// payments. payments must be sorted by (policy_id, paid_date), which is
// what DeduplicatePayments produces. The result is sorted by policy_id.
func ResolvePolicies(policies []PolicyRecord, payments []LogicalPayment, resolve StatusResolver) ([]ResolvedPolicy, error) {
	if resolve == nil {
		resolve = LastAlphabetical
	}

	byPolicy := make(map[string]PolicyRecord, len(policies))
	for _, p := range policies {
		byPolicy[p.PolicyID] = p
	}

	// Cross-dataset checks first: orphans, then agent disagreement.
	// Orphans are collected across the whole run before failing.
	orphanSet := make(map[string]struct{})
	for _, pay := range payments {
		if _, ok := byPolicy[pay.PolicyID]; !ok {
			orphanSet[pay.PolicyID] = struct{}{}
		}
	}
	if len(orphanSet) > 0 {
		ids := make([]string, 0, len(orphanSet))
		for id := range orphanSet {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, &OrphanPaymentError{PolicyIDs: ids}
	}

	for _, pay := range payments {
		crm := byPolicy[pay.PolicyID]
		if pay.AgentID != crm.AgentID {
			return nil, &ConsistencyError{
				PolicyID:        pay.PolicyID,
				PolicyAgentID:   crm.AgentID,
				RemittanceAgent: pay.AgentID,
			}
		}
	}

	resolved := make(map[string]*ResolvedPolicy, len(policies))
	for _, p := range policies {
		resolved[p.PolicyID] = &ResolvedPolicy{
			PolicyID:        p.PolicyID,
			AgentID:         p.AgentID,
			SubmitDate:      p.SubmitDate,
			EarnedToDate:    decimal.Zero,
			EffectiveStatus: StatusNone,
		}
	}

	// Latest paid date wins the effective status; the resolver breaks
	// exact-date ties so the outcome is order-independent.
	latest := make(map[string]Date, len(resolved))
	for _, pay := range payments {
		rp := resolved[pay.PolicyID]
		rp.EarnedToDate = rp.EarnedToDate.Add(pay.Amount)
		rp.PaymentCount++

		last, seen := latest[pay.PolicyID]
		switch {
		case !seen || pay.PaidDate.After(last):
			latest[pay.PolicyID] = pay.PaidDate
			rp.EffectiveStatus = pay.Status
		case pay.PaidDate.Equal(last):
			rp.EffectiveStatus = resolve(rp.EffectiveStatus, pay.Status)
		}
	}

	out := make([]ResolvedPolicy, 0, len(resolved))
	for _, rp := range resolved {
		rp.RemainingExpected = decimal.Max(byPolicy[rp.PolicyID].LTVExpected.Sub(rp.EarnedToDate), decimal.Zero)
		out = append(out, *rp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out, nil
}
