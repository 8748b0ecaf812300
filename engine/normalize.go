/*
normalize.go - Row normalizer: raw tabular rows to typed records

PURPOSE:
  Validates and coerces the two raw input datasets into typed, well-formed
  records. This is the only stage that sees strings; everything downstream
  works on typed records.

VALIDATION POSTURE:
  Batch, not fail-fast. A missing required column is fatal immediately
  (SchemaError) because the row scan is meaningless without it. Cell-level
  problems are collected across the whole dataset and returned together as
  ValidationErrors, so one run surfaces everything wrong with a source
  file. Row numbers in errors are source-file line numbers (header = 1).

RULES:
  Both datasets:
    - policy_id, agent_id: non-empty after trimming
    - dates: ISO 8601 (YYYY-MM-DD)
  Remittances:
    - amount: any valid decimal, ANY sign. Negative is the claw-back
      channel, never an error.
    - status: active|cancelled, case-insensitive
  Policies:
    - ltv_expected: valid decimal, >= 0
    - policy_id: unique within the dataset

SEE ALSO:
  - errors.go: SchemaError, ValidationError
  - dedupe.go: consumes the normalized remittance records
*/
package engine

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATASET - Already-parsed tabular input
// =============================================================================

// Dataset is a parsed tabular input: a header and data rows. The engine
// never reads files; the caller (upload handler, CLI, test) parses CSV or
// whatever transport it has into this shape first.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Canonical dataset names used in error messages.
const (
	DatasetRemittances = "carrier_remittance"
	DatasetPolicies    = "crm_policies"
)

// Required columns, by dataset.
var (
	remittanceColumns = []string{"policy_id", "agent_id", "paid_date", "amount", "status"}
	policyColumns     = []string{"policy_id", "agent_id", "submit_date", "ltv_expected"}
)

// columnIndex maps each required column to its position, or fails with a
// SchemaError naming the first missing column.
func columnIndex(ds Dataset, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(ds.Columns))
	for i, c := range ds.Columns {
		idx[strings.TrimSpace(c)] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, &SchemaError{Dataset: ds.Name, Column: c}
		}
	}
	return idx, nil
}

// cell returns the trimmed value at column i, or "" for ragged rows.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// fileLine converts a 0-based data row index to a source-file line number,
// counting the header as line 1.
func fileLine(rowIdx int) int { return rowIdx + 2 }

// =============================================================================
// REMITTANCE NORMALIZATION
// =============================================================================

// NormalizeRemittances validates the carrier remittance dataset and returns
// typed records. On failure the error is a *SchemaError or a
// ValidationErrors aggregate; no records are returned alongside an error.
func NormalizeRemittances(ds Dataset) ([]RemittanceRecord, error) {
	if ds.Name == "" {
		ds.Name = DatasetRemittances
	}
	idx, err := columnIndex(ds, remittanceColumns)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	fail := func(row int, column, value, reason string) {
		errs = append(errs, &ValidationError{
			Dataset: ds.Name, Row: fileLine(row), Column: column, Value: value, Reason: reason,
		})
	}

	records := make([]RemittanceRecord, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		rec := RemittanceRecord{
			PolicyID: cell(row, idx["policy_id"]),
			AgentID:  cell(row, idx["agent_id"]),
		}
		rowOK := true

		if rec.PolicyID == "" {
			fail(i, "policy_id", "", "policy_id cannot be empty")
			rowOK = false
		}
		if rec.AgentID == "" {
			fail(i, "agent_id", "", "agent_id cannot be empty")
			rowOK = false
		}

		rawDate := cell(row, idx["paid_date"])
		if d, err := ParseDate(rawDate); err != nil {
			fail(i, "paid_date", rawDate, "paid_date must be a YYYY-MM-DD date")
			rowOK = false
		} else {
			rec.PaidDate = d
		}

		rawAmount := cell(row, idx["amount"])
		if amt, err := decimal.NewFromString(rawAmount); err != nil {
			fail(i, "amount", rawAmount, "amount must be a valid number")
			rowOK = false
		} else {
			// Negative amounts pass through: they are claw-backs.
			rec.Amount = amt
		}

		rawStatus := cell(row, idx["status"])
		if st, ok := parseStatus(rawStatus); !ok {
			fail(i, "status", rawStatus, "status must be one of active, cancelled")
			rowOK = false
		} else {
			rec.Status = st
		}

		if rowOK {
			records = append(records, rec)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return records, nil
}

func parseStatus(raw string) (Status, bool) {
	switch strings.ToLower(raw) {
	case string(StatusActive):
		return StatusActive, true
	case string(StatusCancelled):
		return StatusCancelled, true
	default:
		return StatusNone, false
	}
}

// =============================================================================
// POLICY NORMALIZATION
// =============================================================================

// NormalizePolicies validates the CRM policy dataset and returns typed
// records. policy_id must be unique within the dataset; ltv_expected must
// be a non-negative decimal.
func NormalizePolicies(ds Dataset) ([]PolicyRecord, error) {
	if ds.Name == "" {
		ds.Name = DatasetPolicies
	}
	idx, err := columnIndex(ds, policyColumns)
	if err != nil {
		return nil, err
	}

	var errs ValidationErrors
	fail := func(row int, column, value, reason string) {
		errs = append(errs, &ValidationError{
			Dataset: ds.Name, Row: fileLine(row), Column: column, Value: value, Reason: reason,
		})
	}

	seen := make(map[string]int, len(ds.Rows)) // policy_id -> first file line
	records := make([]PolicyRecord, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		rec := PolicyRecord{
			PolicyID: cell(row, idx["policy_id"]),
			AgentID:  cell(row, idx["agent_id"]),
		}
		rowOK := true

		if rec.PolicyID == "" {
			fail(i, "policy_id", "", "policy_id cannot be empty")
			rowOK = false
		} else if first, dup := seen[rec.PolicyID]; dup {
			fail(i, "policy_id", rec.PolicyID,
				"policy_id must be unique within the CRM dataset (first seen on row "+strconv.Itoa(first)+")")
			rowOK = false
		} else {
			seen[rec.PolicyID] = fileLine(i)
		}

		if rec.AgentID == "" {
			fail(i, "agent_id", "", "agent_id cannot be empty")
			rowOK = false
		}

		rawDate := cell(row, idx["submit_date"])
		if d, err := ParseDate(rawDate); err != nil {
			fail(i, "submit_date", rawDate, "submit_date must be a YYYY-MM-DD date")
			rowOK = false
		} else {
			rec.SubmitDate = d
		}

		rawLTV := cell(row, idx["ltv_expected"])
		if ltv, err := decimal.NewFromString(rawLTV); err != nil {
			fail(i, "ltv_expected", rawLTV, "ltv_expected must be a valid number")
			rowOK = false
		} else if ltv.IsNegative() {
			fail(i, "ltv_expected", rawLTV, "ltv_expected must be >= 0")
			rowOK = false
		} else {
			rec.LTVExpected = ltv
		}

		if rowOK {
			records = append(records, rec)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return records, nil
}
