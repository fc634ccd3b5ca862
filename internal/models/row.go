package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Row is one normalized record from an uploaded file, stored as a document
// referencing its parent file. Rows are never mutated after insertion.
type Row struct {
	ID     int64
	FileID string
	Data   RowData
}

// RowData is an ordered mapping from column name to a storage-safe scalar:
// nil, bool, int64, float64 or string (timestamps are canonical ISO-8601
// strings). Column order follows the source file header so the stored JSON
// keeps the original column layout.
type RowData struct {
	Columns []string
	Values  map[string]any
}

// MarshalJSON emits the data object with keys in source column order.
// encoding/json would sort map keys, losing the file's column layout.
func (d RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range d.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.Values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SearchText projects all cell values into a single lowercase string used
// for case-insensitive substring search. Null cells contribute nothing.
func (d RowData) SearchText() string {
	var sb strings.Builder
	for _, col := range d.Columns {
		v := d.Values[col]
		if v == nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		switch t := v.(type) {
		case string:
			sb.WriteString(strings.ToLower(t))
		case bool:
			sb.WriteString(strconv.FormatBool(t))
		case int64:
			sb.WriteString(strconv.FormatInt(t, 10))
		case float64:
			sb.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
		default:
			raw, err := json.Marshal(t)
			if err == nil {
				sb.WriteString(strings.ToLower(string(raw)))
			}
		}
	}
	return sb.String()
}
