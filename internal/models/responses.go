package models

import "encoding/json"

// TableData is the response shape of GET /data/:file_id.
// Row objects are carried as raw JSON so the stored column order survives
// re-encoding.
type TableData struct {
	Data       []json.RawMessage `json:"data"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Columns    []string          `json:"columns"`
}

// ChartPoint is one aggregated group: {x_column: groupValue, y_column: sum}.
// Keys are the caller-supplied column names, so a map is the natural shape.
type ChartPoint map[string]any

// ChartData is the response shape of GET /charts/:file_id. ChartType is an
// opaque label echoed back to the client; it does not affect aggregation.
type ChartData struct {
	ChartType string       `json:"chart_type"`
	Data      []ChartPoint `json:"data"`
	XColumn   string       `json:"x_column"`
	YColumn   string       `json:"y_column"`
}

// UploadResult is the response shape of POST /uploadfile/.
type UploadResult struct {
	Message string `json:"message"`
	FileID  string `json:"file_id"`
}
