// handlers.go - Handler construction and shared request helpers
package api

import (
	"github.com/labstack/echo/v4"
)

// ownerHeader carries the optional owner tag. It is an unauthenticated
// hint, not an identity.
const ownerHeader = "user_email"

// anonymousOwner tags files uploaded without an owner header.
const anonymousOwner = "anonymous"

// Handler serves the upload, table and chart endpoints.
type Handler struct {
	store   DocumentStore
	version string
}

// NewHandler creates the API handler with its injected store.
func NewHandler(store DocumentStore, version string) *Handler {
	return &Handler{store: store, version: version}
}

// ownerFilter returns the owner tag to filter reads by; empty means no
// filtering.
func ownerFilter(c echo.Context) string {
	return c.Request().Header.Get(ownerHeader)
}

// uploadOwner returns the owner tag to record on an upload.
func uploadOwner(c echo.Context) string {
	if owner := c.Request().Header.Get(ownerHeader); owner != "" {
		return owner
	}
	return anonymousOwner
}
