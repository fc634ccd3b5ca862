// handlers_table.go - Paginated table view handlers
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sparelens/backend/internal/docstore"
	"github.com/sparelens/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPageSize = 10
	maxPageSize     = 1000
)

// HandleTableData returns one page of a file's rows with the filtered
// total count and the column list derived from the page itself.
func (h *Handler) HandleTableData(c echo.Context) error {
	payload, err := h.tableData(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payload)
}

// HandleTableDataMsgpack is the same view encoded as MessagePack for
// clients pulling large pages.
func (h *Handler) HandleTableDataMsgpack(c echo.Context) error {
	payload, err := h.tableData(c)
	if err != nil {
		return err
	}

	// Re-encode rows as maps so the msgpack body carries structured data,
	// not embedded JSON text.
	rows := make([]map[string]any, 0, len(payload.Data))
	for _, raw := range payload.Data {
		var row map[string]any
		if err := json.Unmarshal(raw, &row); err != nil {
			return NewInternalError("failed to decode stored row", err)
		}
		rows = append(rows, row)
	}

	body, err := msgpack.Marshal(map[string]any{
		"data":        rows,
		"total_count": payload.TotalCount,
		"page":        payload.Page,
		"page_size":   payload.PageSize,
		"columns":     payload.Columns,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", body)
}

func (h *Handler) tableData(c echo.Context) (*models.TableData, error) {
	fileID := c.Param("file_id")
	if fileID == "" {
		return nil, NewValidationError("file_id")
	}

	ctx := c.Request().Context()
	if _, err := h.store.GetFile(ctx, fileID, ownerFilter(c)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, NewNotFoundError("file")
		}
		return nil, NewInternalError("failed to load file", err)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	rows, total, err := h.store.QueryRows(ctx, docstore.RowQuery{
		FileID:    fileID,
		Search:    c.QueryParam("search_query"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, NewInternalError("query failed", err)
	}

	columns, err := docstore.PageColumns(rows)
	if err != nil {
		return nil, NewInternalError("failed to derive columns", err)
	}

	return &models.TableData{
		Data:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		Columns:    columns,
	}, nil
}
