/*
engine.go - ComputeQuotes entry point and quote assembler

PURPOSE:
  Wires the pipeline stages together and packages the result. This is the
  core entry contract: two already-parsed datasets plus a config in, one
  QuoteResult (or a structured failure) out.

GUARANTEES:
  - Deterministic: identical inputs and as-of date give byte-identical
    results, including ordering (quotes sorted by agent id).
  - All-or-nothing: any schema, validation, orphan, or consistency error
    fails the invocation; there is no "quotes for the agents that worked".
  - Validation errors from BOTH datasets are reported together when both
    row scans can run.
  - Stateless: safe to invoke concurrently, one call per dataset pair.
*/
package engine

import (
	"errors"
	"sort"
)

// ComputeQuotes runs the full pipeline: normalize both datasets,
// deduplicate payments, resolve policies, calculate per-agent quotes, and
// assemble the result.
func ComputeQuotes(remittances, policies Dataset, cfg Config) (*QuoteResult, error) {
	cfg = cfg.withDefaults()

	remitRecords, remitErr := NormalizeRemittances(remittances)
	policyRecords, policyErr := NormalizePolicies(policies)
	if err := combineInputErrors(remitErr, policyErr); err != nil {
		return nil, err
	}

	payments := DeduplicatePayments(remitRecords, cfg.ResolveStatus)

	resolved, err := ResolvePolicies(policyRecords, payments, cfg.ResolveStatus)
	if err != nil {
		return nil, err
	}

	quotes := CalculateQuotes(resolved, cfg)

	return &QuoteResult{
		GeneratedAt:           cfg.AsOf.normalize(),
		Quotes:                quotes,
		TotalAgents:           len(quotes),
		TotalPoliciesAnalyzed: len(resolved),
	}, nil
}

// combineInputErrors merges the normalization outcomes of the two
// datasets. A schema error wins outright (row results are meaningless
// without the column); two validation aggregates are concatenated so the
// caller sees every bad cell across both files in one pass.
func combineInputErrors(remitErr, policyErr error) error {
	if remitErr == nil && policyErr == nil {
		return nil
	}
	for _, err := range []error{remitErr, policyErr} {
		if errors.Is(err, ErrSchema) {
			return err
		}
	}

	var remitVE, policyVE ValidationErrors
	if errors.As(remitErr, &remitVE) && errors.As(policyErr, &policyVE) {
		merged := make(ValidationErrors, 0, len(remitVE)+len(policyVE))
		merged = append(merged, remitVE...)
		merged = append(merged, policyVE...)
		return merged
	}
	if remitErr != nil {
		return remitErr
	}
	return policyErr
}

func sortQuotes(quotes []AgentQuote) {
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].AgentID < quotes[j].AgentID })
}
