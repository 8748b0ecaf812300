/*
handlers_test.go - HTTP tests for the advance-quote surface

Exercises the full request path: multipart upload, CSV parsing, engine
invocation, error mapping, and run-history recording.
*/
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sms/commission-engine/engine"
	"github.com/sms/commission-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := engine.DefaultConfig() // frozen as-of 2025-07-06
	return NewHandler(store, cfg)
}

const remittanceCSV = `policy_id,agent_id,paid_date,amount,status
P001,A1,2025-06-10,200,active
P001,A1,2025-06-10,200,active
P002,A1,2025-06-12,-50,cancelled
`

const policyCSV = `policy_id,agent_id,submit_date,ltv_expected
P001,A1,2025-06-01,800
P002,A1,2025-06-01,300
`

// multipartUpload builds a request body with the named CSV files and
// optional extra form fields.
func multipartUpload(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for field, content := range files {
		part, err := writer.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for field, value := range fields {
		require.NoError(t, writer.WriteField(field, value))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postAdvanceQuote(t *testing.T, h *Handler, files map[string]string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, "/v1/advance-quote", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// ADVANCE QUOTE
// =============================================================================

func TestAdvanceQuote_Success(t *testing.T) {
	h := newTestHandler(t)

	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": remittanceCSV, "crm_policies": policyCSV},
		nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AdvanceQuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.TotalAgents)
	assert.Equal(t, 2, resp.TotalPoliciesAnalyzed)
	require.Len(t, resp.Quotes, 1)

	q := resp.Quotes[0]
	assert.Equal(t, "A1", q.AgentID)
	// P001 dedupes to one 200 payment; P002 is a -50 claw-back marked cancelled.
	assert.InDelta(t, 150.0, q.EarnedToDate, 0.001)
	// Only P001 is eligible: remaining 600, 80% = 480.
	assert.InDelta(t, 600.0, q.TotalEligibleRemaining, 0.001)
	assert.InDelta(t, 480.0, q.SafeToAdvance, 0.001)
	assert.Equal(t, 1, q.EligiblePoliciesCount)
}

func TestAdvanceQuote_RecordsRunHistory(t *testing.T) {
	h := newTestHandler(t)

	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": remittanceCSV, "crm_policies": policyCSV},
		nil)
	require.Equal(t, http.StatusOK, rec.Code)

	runs, err := h.Store.ListRuns(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sqlite.OutcomeOK, runs[0].Outcome)
	assert.Equal(t, 3, runs[0].RemittanceRows)
	assert.Equal(t, 2, runs[0].PolicyRows)
	assert.Equal(t, 1, runs[0].TotalAgents)
	assert.Equal(t, "2025-07-06", runs[0].AsOf)
}

func TestAdvanceQuote_AsOfOverride(t *testing.T) {
	h := newTestHandler(t)

	// Evaluated one day after submission, nothing clears the 7-day window.
	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": remittanceCSV, "crm_policies": policyCSV},
		map[string]string{"as_of": "2025-06-02"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AdvanceQuoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Quotes, 1)
	assert.Equal(t, 0, resp.Quotes[0].EligiblePoliciesCount)
	assert.InDelta(t, 0.0, resp.Quotes[0].SafeToAdvance, 0.001)
}

func TestAdvanceQuote_MissingFile(t *testing.T) {
	h := newTestHandler(t)

	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": remittanceCSV}, // no crm_policies
		nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "crm_policies")
}

func TestAdvanceQuote_SchemaErrorMapsTo400(t *testing.T) {
	h := newTestHandler(t)

	noStatus := strings.ReplaceAll(remittanceCSV, ",status", "")
	noStatus = strings.ReplaceAll(noStatus, ",active", "")
	noStatus = strings.ReplaceAll(noStatus, ",cancelled", "")

	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": noStatus, "crm_policies": policyCSV},
		nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status")

	// Failed runs land in the history too.
	runs, err := h.Store.ListRuns(httptest.NewRequest(http.MethodGet, "/", nil).Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sqlite.OutcomeDataError, runs[0].Outcome)
}

func TestAdvanceQuote_OrphanPaymentMapsTo400(t *testing.T) {
	h := newTestHandler(t)

	orphan := remittanceCSV + "P999,A1,2025-06-15,100,active\n"
	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": orphan, "crm_policies": policyCSV},
		nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "P999")
}

func TestAdvanceQuote_BadAsOfRejected(t *testing.T) {
	h := newTestHandler(t)

	rec := postAdvanceQuote(t, h,
		map[string]string{"carrier_remittance": remittanceCSV, "crm_policies": policyCSV},
		map[string]string{"as_of": "06/02/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "as_of")
}

// =============================================================================
// RUN HISTORY AND HEALTH
// =============================================================================

func TestListRuns_EmptyHistory(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
