/*
advance.go - Eligibility predicate and capped advance formula

PURPOSE:
  Applies the eligibility window and the capped advance formula to the
  resolved policies and aggregates to one quote per agent.

ELIGIBILITY:
  A policy is eligible when its effective status is active AND its submit
  date is at least the window (default 7 days) before the as-of date. The
  boundary is inclusive: exactly 7 days qualifies. A policy with zero
  payments has no observed status and is never eligible, whatever the CRM
  row says.

FORMULA:
  safe_to_advance = min(rate * total_eligible_remaining, cap)
  rounded half-up to cents. Defaults: rate 0.80, cap 2000.00.

AS-OF DATE:
  Always an explicit parameter on Config, never read from a clock or
  global state, so the calculator stays pure and testable with any date.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIG - Engine knobs, all overridable by the caller
// =============================================================================

// Default engine constants. Callers override per invocation via Config.
var (
	// DefaultAdvanceRate is the discount applied to eligible remaining
	// value before capping.
	DefaultAdvanceRate = decimal.RequireFromString("0.80")

	// DefaultMaxAdvance caps a single agent's advance.
	DefaultMaxAdvance = decimal.RequireFromString("2000.00")

	// DefaultEligibilityWindowDays is the minimum age of a policy's
	// submit date before it can back an advance.
	DefaultEligibilityWindowDays = 7

	// DefaultAsOf is the frozen evaluation date used when the caller does
	// not supply one. Frozen for reproducible runs; servers normally pass
	// today's date explicitly.
	DefaultAsOf = NewDate(2025, time.July, 6)
)

// Config carries everything the engine needs beyond the two datasets.
// The zero value is usable: zero fields fall back to the defaults above.
type Config struct {
	// AsOf is the evaluation date for the eligibility window.
	AsOf Date

	// EligibilityWindowDays is the minimum days between submit date and
	// AsOf (inclusive boundary).
	EligibilityWindowDays int

	// AdvanceRate and MaxAdvance drive the advance formula.
	AdvanceRate decimal.Decimal
	MaxAdvance  decimal.Decimal

	// ResolveStatus breaks duplicate- and same-day status conflicts.
	// Defaults to LastAlphabetical.
	ResolveStatus StatusResolver
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		AsOf:                  DefaultAsOf,
		EligibilityWindowDays: DefaultEligibilityWindowDays,
		AdvanceRate:           DefaultAdvanceRate,
		MaxAdvance:            DefaultMaxAdvance,
		ResolveStatus:         LastAlphabetical,
	}
}

// withDefaults fills zero fields so a partially populated Config behaves.
func (c Config) withDefaults() Config {
	if c.AsOf.IsZero() {
		c.AsOf = DefaultAsOf
	}
	if c.EligibilityWindowDays == 0 {
		c.EligibilityWindowDays = DefaultEligibilityWindowDays
	}
	if c.AdvanceRate.IsZero() {
		c.AdvanceRate = DefaultAdvanceRate
	}
	if c.MaxAdvance.IsZero() {
		c.MaxAdvance = DefaultMaxAdvance
	}
	if c.ResolveStatus == nil {
		c.ResolveStatus = LastAlphabetical
	}
	return c
}

// Eligible reports whether a resolved policy can back an advance under
// this config: active effective status and submit_date <= AsOf - window.
func (c Config) Eligible(p ResolvedPolicy) bool {
	if p.PaymentCount == 0 || p.EffectiveStatus != StatusActive {
		return false
	}
	cutoff := c.AsOf.AddDays(-c.EligibilityWindowDays)
	return p.SubmitDate.BeforeOrEqual(cutoff)
}

// =============================================================================
// AGENT AGGREGATION
// =============================================================================

// CalculateQuotes aggregates resolved policies into one AgentQuote per
// distinct agent, sorted by agent id. Agents appear as soon as they own a
// resolved policy; an agent with zero resolved policies produces no quote.
func CalculateQuotes(resolved []ResolvedPolicy, cfg Config) []AgentQuote {
	cfg = cfg.withDefaults()

	type accumulator struct {
		earned    decimal.Decimal
		remaining decimal.Decimal
		eligible  int
	}
	byAgent := make(map[string]*accumulator)
	order := make([]string, 0)

	for _, p := range resolved {
		acc, ok := byAgent[p.AgentID]
		if !ok {
			acc = &accumulator{earned: decimal.Zero, remaining: decimal.Zero}
			byAgent[p.AgentID] = acc
			order = append(order, p.AgentID)
		}
		// Earnings count across every policy the agent owns.
		acc.earned = acc.earned.Add(p.EarnedToDate)
		if cfg.Eligible(p) {
			acc.remaining = acc.remaining.Add(p.RemainingExpected)
			acc.eligible++
		}
	}

	quotes := make([]AgentQuote, 0, len(byAgent))
	for _, agentID := range order {
		acc := byAgent[agentID]
		advance := decimal.Min(cfg.AdvanceRate.Mul(acc.remaining), cfg.MaxAdvance)
		quotes = append(quotes, AgentQuote{
			AgentID:                agentID,
			EarnedToDate:           acc.earned,
			TotalEligibleRemaining: acc.remaining,
			SafeToAdvance:          advance.Round(2),
			EligiblePoliciesCount:  acc.eligible,
		})
	}
	sortQuotes(quotes)
	return quotes
}
