// Package batch imports CRM CSV exports through the property pipeline.
package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
	"github.com/Networkcaretaker/real-estate-backend/internal/pipeline"
	"github.com/Networkcaretaker/real-estate-backend/internal/processing"
)

// RequiredColumns must be present in the header of an import file.
var RequiredColumns = []string{
	"id", "title", "description", "type", "price", "country", "region",
	"municipality", "town", "postcode", "features",
}

// Processor handles one CRM record.
type Processor interface {
	Process(ctx context.Context, rec model.CRMRecord) (*pipeline.Result, error)
}

// RowError records why a row was not imported.
type RowError struct {
	PropertyID string `json:"property_id"`
	Error      string `json:"error"`
}

// Summary reports the outcome of an import. Errors and ProcessedIDs follow
// file order.
type Summary struct {
	Total        int        `json:"total"`
	Successful   int        `json:"successful"`
	Failed       int        `json:"failed"`
	Errors       []RowError `json:"errors"`
	ProcessedIDs []string   `json:"processed_ids"`
}

// Importer runs CSV rows through a Processor on a bounded pool.
type Importer struct {
	proc Processor
	pool *processing.Pool
	log  logrus.FieldLogger
}

// NewImporter constructs an Importer using workers concurrent rows.
func NewImporter(proc Processor, workers int, log logrus.FieldLogger) *Importer {
	return &Importer{
		proc: proc,
		pool: processing.New(workers),
		log:  log.WithField("service", "batch_processor"),
	}
}

// ValidateCSV returns the required columns missing from the header of r.
func (im *Importer) ValidateCSV(r io.Reader) ([]string, error) {
	header, err := readHeader(newReader(r))
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	missing := []string{}
	for _, col := range RequiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		im.log.WithField("missing_columns", missing).Warn("csv_validation_failed")
	}
	return missing, nil
}

// ValidateFile is ValidateCSV for a file path.
func (im *Importer) ValidateFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.ValidateCSV(f)
}

// Import processes every row of r. A failing row is recorded in the summary
// and never stops the others; only an unreadable file returns an error.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	cr := newReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}

	ids := make([]string, len(rows))
	errs := make([]error, len(rows))
	im.pool.Run(ctx, len(rows), func(ctx context.Context, i int) {
		rec := model.CRMRecordFromRow(rowMap(header, rows[i]))
		ids[i] = rowIdentity(rec, i)
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		if _, err := im.proc.Process(ctx, rec); err != nil {
			im.log.WithError(err).WithField("property_id", ids[i]).Error("property_processing_error")
			errs[i] = err
		}
	})

	summary := &Summary{Total: len(rows), Errors: []RowError{}, ProcessedIDs: []string{}}
	for i := range rows {
		if ids[i] == "" {
			// Never started because ctx was cancelled.
			ids[i] = rowIdentity(model.CRMRecordFromRow(rowMap(header, rows[i])), i)
			errs[i] = ctx.Err()
		}
		if errs[i] != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, RowError{PropertyID: ids[i], Error: errs[i].Error()})
			continue
		}
		summary.Successful++
		summary.ProcessedIDs = append(summary.ProcessedIDs, ids[i])
	}

	im.log.WithFields(logrus.Fields{
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	}).Info("csv_processing_completed")
	return summary, nil
}

// ImportFile is Import for a file path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Summary, error) {
	im.log.WithField("path", path).Info("reading_csv_file")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.Import(ctx, f)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

// rowMap keys the row's non-blank cells by header name.
func rowMap(header map[string]int, row []string) map[string]string {
	out := make(map[string]string, len(header))
	for key, idx := range header {
		if idx < len(row) {
			if v := strings.TrimSpace(row[idx]); v != "" {
				out[key] = v
			}
		}
	}
	return out
}

// rowIdentity names a row in the summary. Rows are numbered from 1.
func rowIdentity(rec model.CRMRecord, i int) string {
	if id := rec.ID.String(); id != "" {
		return id
	}
	return fmt.Sprintf("row %d", i+1)
}
