/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API surface, decoupled from the engine's domain
  types so the wire contract can evolve independently.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

MONEY:
  The engine works in decimal; DTOs emit JSON numbers. Conversions go
  through decimal's Float64 at the boundary only, after all arithmetic and
  rounding are done, so no cent-level drift can occur upstream.

SEE ALSO:
  - handlers.go: Produces these types
  - engine/types.go: The domain types these mirror
*/
package api

import (
	"time"

	"github.com/sms/commission-engine/engine"
	"github.com/sms/commission-engine/store/sqlite"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AgentQuoteDTO is one agent's advance quote.
type AgentQuoteDTO struct {
	AgentID                string  `json:"agent_id"`
	EarnedToDate           float64 `json:"earned_to_date"`
	TotalEligibleRemaining float64 `json:"total_eligible_remaining"`
	SafeToAdvance          float64 `json:"safe_to_advance"`
	EligiblePoliciesCount  int     `json:"eligible_policies_count"`
}

// AdvanceQuoteResponse wraps a full quote run.
type AdvanceQuoteResponse struct {
	GeneratedAt           string          `json:"generated_at"`
	Quotes                []AgentQuoteDTO `json:"quotes"`
	TotalAgents           int             `json:"total_agents"`
	TotalPoliciesAnalyzed int             `json:"total_policies_analyzed"`
}

// RunDTO is one entry of the run history.
type RunDTO struct {
	ID              string `json:"id"`
	GeneratedAt     string `json:"generated_at"`
	AsOf            string `json:"as_of"`
	RemittanceRows  int    `json:"remittance_rows"`
	PolicyRows      int    `json:"policy_rows"`
	TotalAgents     int    `json:"total_agents"`
	TotalPolicies   int    `json:"total_policies"`
	DurationMillis  int64  `json:"duration_ms"`
	Outcome         string `json:"outcome"`
	Error           string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toQuoteResponse(result *engine.QuoteResult) AdvanceQuoteResponse {
	quotes := make([]AgentQuoteDTO, len(result.Quotes))
	for i, q := range result.Quotes {
		earned, _ := q.EarnedToDate.Float64()
		remaining, _ := q.TotalEligibleRemaining.Float64()
		advance, _ := q.SafeToAdvance.Float64()
		quotes[i] = AgentQuoteDTO{
			AgentID:                q.AgentID,
			EarnedToDate:           earned,
			TotalEligibleRemaining: remaining,
			SafeToAdvance:          advance,
			EligiblePoliciesCount:  q.EligiblePoliciesCount,
		}
	}
	return AdvanceQuoteResponse{
		GeneratedAt:           result.GeneratedAt.Format(time.RFC3339),
		Quotes:                quotes,
		TotalAgents:           result.TotalAgents,
		TotalPoliciesAnalyzed: result.TotalPoliciesAnalyzed,
	}
}

func toRunDTO(r sqlite.RunRecord) RunDTO {
	return RunDTO{
		ID:             r.ID,
		GeneratedAt:    r.GeneratedAt.Format(time.RFC3339),
		AsOf:           r.AsOf,
		RemittanceRows: r.RemittanceRows,
		PolicyRows:     r.PolicyRows,
		TotalAgents:    r.TotalAgents,
		TotalPolicies:  r.TotalPolicies,
		DurationMillis: r.Duration.Milliseconds(),
		Outcome:        r.Outcome,
		Error:          r.Error,
	}
}

func toRunDTOs(records []sqlite.RunRecord) []RunDTO {
	dtos := make([]RunDTO, len(records))
	for i, r := range records {
		dtos[i] = toRunDTO(r)
	}
	return dtos
}
