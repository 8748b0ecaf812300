/*
Package engine computes per-agent commission advance quotes.

PURPOSE:
  This package is the reconciliation-and-rules core of the commission
  engine. It takes two independently sourced tabular datasets (carrier
  payment remittances and CRM policy records) and produces one capped
  advance quote per sales agent.

PIPELINE:
  The engine is a staged pipeline over in-memory collections; data flows
  strictly forward and no stage calls back upstream:

    Dataset -> Normalize -> Deduplicate -> Resolve -> Calculate -> QuoteResult

  1. Normalize:   raw rows to typed records, batch validation (normalize.go)
  2. Deduplicate: collapse duplicate remittance rows (dedupe.go)
  3. Resolve:     merge CRM + payments per policy (resolve.go)
  4. Calculate:   eligibility window + advance formula (advance.go)
  5. Assemble:    per-agent quotes + run metadata (engine.go)

KEY CONCEPTS IN THIS FILE (types.go):
  - RemittanceRecord: one carrier payment row, status as observed at pay time
  - PolicyRecord:     one CRM policy row with expected lifetime value
  - LogicalPayment:   the deduplicated payment unit
  - ResolvedPolicy:   per-policy earned/remaining picture across both sources
  - AgentQuote:       the per-agent output
  - QuoteResult:      quotes plus run metadata, the engine's sole return value

DESIGN PRINCIPLES:
  1. Purity: the engine is a pure function of its inputs and the as-of
     date. No clock, filesystem, network, or environment access.
  2. Precision: all money uses decimal.Decimal, never binary floats.
  3. No partial results: any fatal data error fails the whole invocation.
  4. Statelessness: every derived value is rebuilt per invocation, so
     concurrent invocations need no coordination.

SEE ALSO:
  - engine.go: ComputeQuotes entry point
  - errors.go: error taxonomy (schema, validation, orphan, consistency)
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Policy status as observed on a remittance
// =============================================================================

// Status is the policy status carried on a remittance row. It reflects what
// the carrier reported at payment time, not a live CRM state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"

	// StatusNone marks a resolved policy with zero payments. Such a policy
	// has no observed status and is never advance-eligible.
	StatusNone Status = ""
)

// =============================================================================
// INPUT RECORDS - Typed rows produced by the normalizer
// =============================================================================

// RemittanceRecord is one validated carrier remittance row. Amount may be
// negative: a negative payment is a claw-back, not an error.
// Records are immutable once parsed.
type RemittanceRecord struct {
	PolicyID string
	AgentID  string
	PaidDate Date
	Amount   decimal.Decimal
	Status   Status
}

// PolicyRecord is one validated CRM policy row. PolicyID is unique within
// the CRM dataset; LTVExpected is the total lifetime value expected and is
// never negative.
type PolicyRecord struct {
	PolicyID    string
	AgentID     string
	SubmitDate  Date
	LTVExpected decimal.Decimal
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

// LogicalPayment is one deduplicated payment: exactly one entry exists per
// distinct (policy_id, paid_date, amount) key in a run. Owned by the
// deduplicator, consumed by the resolver, not retained afterwards.
type LogicalPayment struct {
	PolicyID string
	AgentID  string
	PaidDate Date
	Amount   decimal.Decimal
	Status   Status
}

// ResolvedPolicy is the single merged picture of one policy across the CRM
// and remittance sources.
//
// Invariant: RemainingExpected >= 0 always. EarnedToDate has no floor;
// claw-backs can drive it negative.
type ResolvedPolicy struct {
	PolicyID   string
	AgentID    string
	SubmitDate Date

	// EarnedToDate is the signed sum of the policy's logical payments
	// (zero when the policy has no payments).
	EarnedToDate decimal.Decimal

	// RemainingExpected = max(LTVExpected - EarnedToDate, 0).
	RemainingExpected decimal.Decimal

	// EffectiveStatus is the status of the logical payment with the latest
	// paid date, or StatusNone when PaymentCount is zero.
	EffectiveStatus Status

	// PaymentCount is the number of logical payments backing this policy.
	PaymentCount int
}

// =============================================================================
// OUTPUT
// =============================================================================

// AgentQuote is the advance quote for one agent.
type AgentQuote struct {
	AgentID string

	// EarnedToDate sums earnings over ALL the agent's resolved policies,
	// eligible or not. It reflects total earnings, not the eligible pool.
	EarnedToDate decimal.Decimal

	// TotalEligibleRemaining sums RemainingExpected over eligible policies only.
	TotalEligibleRemaining decimal.Decimal

	// SafeToAdvance = min(rate * TotalEligibleRemaining, cap), rounded
	// half-up to cents.
	SafeToAdvance decimal.Decimal

	EligiblePoliciesCount int
}

// QuoteResult wraps the full output of one engine invocation.
type QuoteResult struct {
	// GeneratedAt is the as-of date the run was evaluated against
	// (midnight UTC), so identical inputs produce identical results.
	GeneratedAt time.Time

	// Quotes is sorted by agent id ascending. Agents with zero resolved
	// policies are not present.
	Quotes []AgentQuote

	TotalAgents int

	// TotalPoliciesAnalyzed counts distinct policy ids across all resolved
	// policies, eligible or not.
	TotalPoliciesAnalyzed int
}
