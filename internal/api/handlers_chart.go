// handlers_chart.go - Chart aggregation handler
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sparelens/backend/internal/docstore"
	"github.com/sparelens/backend/internal/models"
)

// HandleChartData groups a file's rows by the X column and sums the
// numeric coercion of the Y column per group. The chart type is an opaque
// label echoed back; rendering is a client concern.
func (h *Handler) HandleChartData(c echo.Context) error {
	fileID := c.Param("file_id")
	if fileID == "" {
		return NewValidationError("file_id")
	}

	chartType := c.QueryParam("chart_type")
	xColumn := c.QueryParam("x_column")
	yColumn := c.QueryParam("y_column")
	switch {
	case chartType == "":
		return NewValidationError("chart_type")
	case xColumn == "":
		return NewValidationError("x_column")
	case yColumn == "":
		return NewValidationError("y_column")
	}

	ctx := c.Request().Context()
	if _, err := h.store.GetFile(ctx, fileID, ownerFilter(c)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return NewNotFoundError("file")
		}
		return NewInternalError("failed to load file", err)
	}

	points, err := h.store.AggregateSum(ctx, fileID, xColumn, yColumn)
	if err != nil {
		return NewInternalError("aggregation failed", err)
	}
	if len(points) == 0 {
		return NewBadRequestError("No valid numeric data in Y column.", nil)
	}

	return c.JSON(http.StatusOK, models.ChartData{
		ChartType: chartType,
		Data:      points,
		XColumn:   xColumn,
		YColumn:   yColumn,
	})
}
