// routes.go - Route registration
package api

import (
	"github.com/labstack/echo/v4"
)

// RouteOptions toggles optional routes.
type RouteOptions struct {
	AllowFileDeletion bool
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler, opts RouteOptions) {
	e.GET("/health", h.HandleHealth)

	e.POST("/uploadfile/", h.HandleUploadFile)
	e.GET("/files/", h.HandleListFiles)
	if opts.AllowFileDeletion {
		e.DELETE("/files/:file_id", h.HandleDeleteFile)
	}

	e.GET("/data/:file_id", h.HandleTableData)
	e.GET("/data/:file_id/msgpack", h.HandleTableDataMsgpack)
	e.GET("/charts/:file_id", h.HandleChartData)
}
