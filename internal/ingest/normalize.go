// Package ingest converts uploaded tabular files (CSV with an XLSX
// fallback) into storage-safe row documents. Normalization is a pure
// transform; persistence is the caller's responsibility.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/sparelens/backend/internal/models"
)

// ErrEmptyFile is returned when a file parses but contains no data rows.
var ErrEmptyFile = errors.New("uploaded file is empty")

// ParseError is returned when neither the CSV nor the XLSX reader can make
// sense of the input. It is a client error.
type ParseError struct {
	CSVErr  error
	XLSXErr error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("file is empty or unparseable (csv: %v, xlsx: %v)", e.CSVErr, e.XLSXErr)
}

// rawTable is a parsed file before coercion: a header plus raw cell values.
// CSV cells are strings; XLSX cells arrive typed (string, float64, bool,
// time.Time).
type rawTable struct {
	header  []string
	records [][]any
}

// Normalize parses file bytes and returns one Row per input record, tagged
// with the parent file id. Cell values are coerced to storage-safe scalars.
func Normalize(data []byte, fileID string) ([]models.Row, error) {
	table, err := parseTable(data)
	if err != nil {
		return nil, err
	}
	if len(table.records) == 0 {
		return nil, ErrEmptyFile
	}

	rows := make([]models.Row, 0, len(table.records))
	for _, rec := range table.records {
		values := make(map[string]any, len(table.header))
		for i, col := range table.header {
			if i < len(rec) {
				values[col] = coerceCell(rec[i])
			} else {
				// Short record: trailing columns are null, like a
				// missing cell.
				values[col] = nil
			}
		}
		rows = append(rows, models.Row{
			FileID: fileID,
			Data: models.RowData{
				Columns: table.header,
				Values:  values,
			},
		})
	}
	return rows, nil
}

// parseTable sniffs the format and parses, falling back to the other reader
// on failure. XLSX files are zip archives, so the zip magic decides which
// reader goes first.
func parseTable(data []byte) (*rawTable, error) {
	primary, fallback := parseCSV, parseXLSX
	if isZip(data) {
		primary, fallback = parseXLSX, parseCSV
	}

	table, errPrimary := primary(data)
	if errPrimary == nil {
		return table, nil
	}
	table, errFallback := fallback(data)
	if errFallback == nil {
		return table, nil
	}

	perr := &ParseError{CSVErr: errPrimary, XLSXErr: errFallback}
	if isZip(data) {
		perr = &ParseError{CSVErr: errFallback, XLSXErr: errPrimary}
	}
	return nil, perr
}

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// parseCSV reads delimited text. The first record is the header; records may
// be ragged (extra cells beyond the header are dropped, short records are
// padded with nulls during normalization).
func parseCSV(data []byte) (*rawTable, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &rawTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	var records [][]any
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv record: %w", err)
		}
		if len(rec) > len(header) {
			rec = rec[:len(header)]
		}
		cells := make([]any, len(rec))
		for i, v := range rec {
			cells[i] = v
		}
		records = append(records, cells)
	}

	return &rawTable{header: header, records: records}, nil
}
