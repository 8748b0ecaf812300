/*
csv.go - Multipart CSV parts to engine datasets

PURPOSE:
  Bridges uploaded CSV files to the engine's Dataset shape. All file and
  format concerns live here: the engine itself never sees a file, only
  parsed rows.

CHECKS (before any row-level validation the engine does):
  - filename must end in .csv
  - content must be valid UTF-8
  - file must contain a header row and at least one data row

SEE ALSO:
  - handlers.go: Calls readDataset for each uploaded part
  - engine/normalize.go: Validates the parsed rows
*/
package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/sms/commission-engine/engine"
)

// maxUploadBytes bounds a single request's multipart payload.
const maxUploadBytes = 10 << 20 // 10 MB

// readDataset parses one uploaded CSV part into an engine Dataset. name is
// the canonical dataset name used in error messages.
func readDataset(fh *multipart.FileHeader, name string) (engine.Dataset, error) {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(fh.Filename)), ".csv") {
		return engine.Dataset{}, fmt.Errorf("%s: upload must be a .csv file, got %q", name, fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return engine.Dataset{}, fmt.Errorf("%s: failed to open upload: %w", name, err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return engine.Dataset{}, fmt.Errorf("%s: failed to read upload: %w", name, err)
	}
	if len(raw) > maxUploadBytes {
		return engine.Dataset{}, fmt.Errorf("%s: file exceeds the %d byte limit", name, maxUploadBytes)
	}
	if !utf8.Valid(raw) {
		return engine.Dataset{}, fmt.Errorf("%s: file is not valid UTF-8", name)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return engine.Dataset{}, fmt.Errorf("%s: file is empty", name)
	}

	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // ragged rows surface as cell validation errors

	records, err := reader.ReadAll()
	if err != nil {
		return engine.Dataset{}, fmt.Errorf("%s: invalid CSV format: %w", name, err)
	}
	if len(records) < 2 {
		return engine.Dataset{}, fmt.Errorf("%s: file contains no data rows", name)
	}

	return engine.Dataset{
		Name:    name,
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}
