/*
handlers.go - HTTP API handlers for the commission advance engine

PURPOSE:
  Exposes the quote engine via REST. Handles multipart upload parsing,
  JSON serialization, and error mapping; all business rules stay in the
  engine package.

ENDPOINTS:
  POST /v1/advance-quote   Upload carrier_remittance + crm_policies CSVs,
                           get per-agent quotes
  GET  /v1/runs            Recent run history
  GET  /healthz            Liveness check

REQUEST FLOW:
  1. Parse multipart form (two CSV files, optional as_of field)
  2. Parse CSVs into engine datasets
  3. Invoke engine.ComputeQuotes
  4. Record the run in the history store
  5. Serialize response

ERROR HANDLING:
  - 400: bad upload (missing file, non-CSV, bad encoding) or any engine
         data error (schema, validation, orphan, consistency)
  - 500: store failures and anything unexpected
  Engine data errors keep their full structured message so the caller can
  locate the offending rows.

SECURITY NOTE:
  No authentication. The service is expected to sit behind an internal
  gateway.

SEE ALSO:
  - dto.go: Response shapes
  - csv.go: Upload parsing
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sms/commission-engine/engine"
	"github.com/sms/commission-engine/store/sqlite"
)

// Form field names for the two uploads.
const (
	fieldRemittances = "carrier_remittance"
	fieldPolicies    = "crm_policies"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// Config is the engine configuration template for requests. A zero
	// AsOf means "today (UTC)" unless the request carries an as_of field.
	Config engine.Config
}

// NewHandler creates a new handler with the given store and engine config.
func NewHandler(store *sqlite.Store, cfg engine.Config) *Handler {
	return &Handler{Store: store, Config: cfg}
}

// =============================================================================
// ADVANCE QUOTE
// =============================================================================

// AdvanceQuote computes per-agent advance quotes from two uploaded CSVs.
// POST /v1/advance-quote
func (h *Handler) AdvanceQuote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Request must be multipart/form-data with two CSV files", err)
		return
	}

	remitFile, err := formFile(r, fieldRemittances)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing carrier_remittance upload", err)
		return
	}
	policyFile, err := formFile(r, fieldPolicies)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing crm_policies upload", err)
		return
	}

	remitDS, err := readDataset(remitFile, engine.DatasetRemittances)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid carrier_remittance file", err)
		return
	}
	policyDS, err := readDataset(policyFile, engine.DatasetPolicies)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid crm_policies file", err)
		return
	}

	cfg := h.Config
	if rawAsOf := r.FormValue("as_of"); rawAsOf != "" {
		asOf, err := engine.ParseDate(rawAsOf)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		cfg.AsOf = asOf
	} else if cfg.AsOf.IsZero() {
		cfg.AsOf = engine.Today()
	}

	start := time.Now()
	result, err := engine.ComputeQuotes(remitDS, policyDS, cfg)
	elapsed := time.Since(start)

	if err != nil {
		h.recordRun(r, sqlite.RunRecord{
			ID:             uuid.NewString(),
			GeneratedAt:    time.Now().UTC(),
			AsOf:           cfg.AsOf.String(),
			RemittanceRows: len(remitDS.Rows),
			PolicyRows:     len(policyDS.Rows),
			Duration:       elapsed,
			Outcome:        sqlite.OutcomeDataError,
			Error:          err.Error(),
		})

		if engine.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Input data rejected", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Quote computation failed", err)
		return
	}

	h.recordRun(r, sqlite.RunRecord{
		ID:             uuid.NewString(),
		GeneratedAt:    result.GeneratedAt,
		AsOf:           cfg.AsOf.String(),
		RemittanceRows: len(remitDS.Rows),
		PolicyRows:     len(policyDS.Rows),
		TotalAgents:    result.TotalAgents,
		TotalPolicies:  result.TotalPoliciesAnalyzed,
		Duration:       elapsed,
		Outcome:        sqlite.OutcomeOK,
	})

	writeJSON(w, http.StatusOK, toQuoteResponse(result))
}

// recordRun best-effort appends to the run history; a store failure never
// fails the quote request itself.
func (h *Handler) recordRun(r *http.Request, rec sqlite.RunRecord) {
	if h.Store == nil {
		return
	}
	if err := h.Store.SaveRun(r.Context(), rec); err != nil {
		log.Printf("failed to record run %s: %v", rec.ID, err)
	}
}

func formFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, fmt.Errorf("form field %q must carry a CSV file", field)
	}
	return r.MultipartForm.File[field][0], nil
}

// =============================================================================
// RUN HISTORY
// =============================================================================

// ListRuns returns the most recent engine runs.
// GET /v1/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTOs(records))
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
