/*
errors.go - Error taxonomy for the quote engine

PURPOSE:
  All engine error types in one place. Every fatal condition maps to a
  distinct, human-readable message with enough context (dataset, row,
  column, value) to locate and fix the offending source row.

ERROR CATEGORIES:
  1. Schema errors      - a required column is absent from a dataset
  2. Validation errors  - a cell fails type/range/format checks
  3. Orphan payments    - a remittance references an unknown policy
  4. Consistency errors - the two sources disagree on a policy's agent

NO PARTIAL RESULTS:
  All of these are fatal for the invocation. The engine either returns a
  complete, internally consistent result or fails outright. The engine is
  pure and deterministic, so retrying with the same input yields the same
  error; retries are the caller's concern, not ours.

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, engine.ErrValidation) { ... }

  or use IsClientError to decide a 400-vs-500 style split.

SEE ALSO:
  - normalize.go: produces SchemaError and ValidationErrors
  - resolve.go:   produces OrphanPaymentError and ConsistencyError
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSchema is returned when a required column is missing from an
	// input dataset.
	ErrSchema = errors.New("schema error")

	// ErrValidation is returned when one or more cells fail
	// type/range/format checks.
	ErrValidation = errors.New("validation error")

	// ErrOrphanPayment is returned when a remittance references a
	// policy_id absent from the policy dataset.
	ErrOrphanPayment = errors.New("orphan payment")

	// ErrConsistency is returned when the remittance and CRM sources
	// disagree on a policy's agent.
	ErrConsistency = errors.New("cross-source consistency error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry location context
// =============================================================================

// SchemaError reports a required column missing from a dataset. The row
// scan for that dataset cannot proceed without it.
type SchemaError struct {
	Dataset string
	Column  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %q is missing required column %q", e.Dataset, e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ValidationError reports a single bad cell. Row is the line number in the
// source file, counting the header as line 1, so the message points at the
// exact line to fix.
type ValidationError struct {
	Dataset string
	Row     int
	Column  string
	Value   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s row %d, column %q: %s (got %q)",
		e.Dataset, e.Row, e.Column, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ValidationErrors aggregates every cell failure found in a validation
// pass. Validation continues past the first bad row so one run surfaces
// everything wrong with the source files.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("validation failed (%d error(s)):\n  %s",
		len(e), strings.Join(msgs, "\n  "))
}

func (e ValidationErrors) Unwrap() error { return ErrValidation }

// OrphanPaymentError reports remittance policy ids with no matching CRM
// policy record. Without the CRM row there is no ltv_expected, so the
// policy cannot be resolved. PolicyIDs is sorted and deduplicated.
type OrphanPaymentError struct {
	PolicyIDs []string
}

func (e *OrphanPaymentError) Error() string {
	return fmt.Sprintf("remittances reference policy ids missing from the policy dataset: %s"+
		" (check cross-dataset consistency)", strings.Join(e.PolicyIDs, ", "))
}

func (e *OrphanPaymentError) Unwrap() error { return ErrOrphanPayment }

// ConsistencyError reports a payment whose agent_id disagrees with the CRM
// policy's agent_id. The engine never silently prefers one source; the
// caller must reconcile upstream.
type ConsistencyError struct {
	PolicyID        string
	PolicyAgentID   string
	RemittanceAgent string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("policy %q: remittance agent %q disagrees with CRM agent %q"+
		" (resolve upstream before quoting)", e.PolicyID, e.RemittanceAgent, e.PolicyAgentID)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true when the error is caused by the input data
// rather than the engine itself. Every engine error is a data error.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchema) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOrphanPayment) ||
		errors.Is(err, ErrConsistency)
}
