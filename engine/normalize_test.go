package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sms/commission-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func remittanceDataset(rows ...[]string) engine.Dataset {
	return engine.Dataset{
		Name:    engine.DatasetRemittances,
		Columns: []string{"policy_id", "agent_id", "paid_date", "amount", "status"},
		Rows:    rows,
	}
}

func policyDataset(rows ...[]string) engine.Dataset {
	return engine.Dataset{
		Name:    engine.DatasetPolicies,
		Columns: []string{"policy_id", "agent_id", "submit_date", "ltv_expected"},
		Rows:    rows,
	}
}

// =============================================================================
// SCHEMA CHECKS
// =============================================================================

func TestNormalizeRemittances_MissingColumn(t *testing.T) {
	// GIVEN: A remittance dataset without the status column
	// WHEN: Normalizing
	// THEN: SchemaError naming the dataset and the missing column

	ds := engine.Dataset{
		Name:    engine.DatasetRemittances,
		Columns: []string{"policy_id", "agent_id", "paid_date", "amount"},
		Rows:    [][]string{{"P001", "A1", "2025-07-01", "200"}},
	}

	_, err := engine.NormalizeRemittances(ds)
	if !errors.Is(err, engine.ErrSchema) {
		t.Fatalf("expected schema error, got %v", err)
	}

	var schemaErr *engine.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if schemaErr.Column != "status" {
		t.Errorf("expected missing column %q, got %q", "status", schemaErr.Column)
	}
	if schemaErr.Dataset != engine.DatasetRemittances {
		t.Errorf("expected dataset %q, got %q", engine.DatasetRemittances, schemaErr.Dataset)
	}
}

func TestNormalizePolicies_MissingColumn(t *testing.T) {
	ds := engine.Dataset{
		Name:    engine.DatasetPolicies,
		Columns: []string{"policy_id", "agent_id", "submit_date"},
		Rows:    [][]string{{"P001", "A1", "2025-06-01"}},
	}

	_, err := engine.NormalizePolicies(ds)
	var schemaErr *engine.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if schemaErr.Column != "ltv_expected" {
		t.Errorf("expected missing column %q, got %q", "ltv_expected", schemaErr.Column)
	}
}

// =============================================================================
// CELL VALIDATION
// =============================================================================

func TestNormalizeRemittances_ValidRows(t *testing.T) {
	ds := remittanceDataset(
		[]string{"P001", "A1", "2025-07-01", "200.50", "active"},
		[]string{"P001", "A1", "2025-08-01", "-75.25", "CANCELLED"}, // claw-back, mixed case
	)

	records, err := engine.NormalizeRemittances(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if !records[1].Amount.IsNegative() {
		t.Error("negative amount (claw-back) should survive normalization")
	}
	if records[1].Status != engine.StatusCancelled {
		t.Errorf("status should be case-insensitive, got %q", records[1].Status)
	}
}

func TestNormalizeRemittances_CollectsAllErrors(t *testing.T) {
	// GIVEN: Three bad rows with different failures
	// WHEN: Normalizing
	// THEN: Every failure is reported together, with file line numbers

	ds := remittanceDataset(
		[]string{"", "A1", "2025-07-01", "200", "active"},        // empty policy_id (line 2)
		[]string{"P002", "A1", "07/01/2025", "200", "active"},    // bad date (line 3)
		[]string{"P003", "A1", "2025-07-01", "abc", "suspended"}, // bad amount AND status (line 4)
	)

	_, err := engine.NormalizeRemittances(ds)
	if !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var verrs engine.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 4 {
		t.Fatalf("expected 4 collected errors, got %d: %v", len(verrs), err)
	}
	if verrs[0].Row != 2 || verrs[0].Column != "policy_id" {
		t.Errorf("first error should point at line 2 policy_id, got line %d %q", verrs[0].Row, verrs[0].Column)
	}
	if verrs[1].Row != 3 || verrs[1].Column != "paid_date" || verrs[1].Value != "07/01/2025" {
		t.Errorf("second error should carry line 3 paid_date with raw value, got %+v", verrs[1])
	}
}

func TestNormalizePolicies_NegativeLTVRejected(t *testing.T) {
	ds := policyDataset([]string{"P001", "A1", "2025-06-01", "-800"})

	_, err := engine.NormalizePolicies(ds)
	var verrs engine.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if verrs[0].Column != "ltv_expected" {
		t.Errorf("expected ltv_expected error, got %q", verrs[0].Column)
	}
	if !strings.Contains(verrs[0].Reason, ">= 0") {
		t.Errorf("reason should state the non-negative rule, got %q", verrs[0].Reason)
	}
}

func TestNormalizePolicies_DuplicatePolicyIDRejected(t *testing.T) {
	ds := policyDataset(
		[]string{"P001", "A1", "2025-06-01", "800"},
		[]string{"P001", "A1", "2025-06-02", "900"},
	)

	_, err := engine.NormalizePolicies(ds)
	var verrs engine.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if verrs[0].Row != 3 || verrs[0].Column != "policy_id" {
		t.Errorf("duplicate should be flagged on line 3, got %+v", verrs[0])
	}
}

func TestNormalizeRemittances_TrimsWhitespace(t *testing.T) {
	ds := remittanceDataset([]string{"  P001 ", " A1", "2025-07-01", "200", " active "})

	records, err := engine.NormalizeRemittances(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0].PolicyID != "P001" || records[0].AgentID != "A1" {
		t.Errorf("ids should be trimmed, got %q/%q", records[0].PolicyID, records[0].AgentID)
	}
}
