// handlers_upload.go - Upload, listing and deletion handlers
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sparelens/backend/internal/docstore"
	"github.com/sparelens/backend/internal/ingest"
	"github.com/sparelens/backend/internal/models"
)

// HandleUploadFile ingests a multipart tabular file: metadata first, then
// normalized rows in one batched write. Any failure after the metadata
// write triggers a best-effort compensating delete so no partial upload
// survives.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if fileHeader.Filename == "" {
		return NewBadRequestError("no file provided", nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	fileID := uuid.New().String()
	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	meta := &models.UploadedFile{
		ID:               fileID,
		OriginalFilename: fileHeader.Filename,
		StoredFilename:   fileID + path.Ext(fileHeader.Filename),
		FileSize:         int64(len(content)),
		MimeType:         mimeType,
		UploadDate:       time.Now(),
		Owner:            uploadOwner(c),
	}

	ctx := c.Request().Context()
	if err := h.store.InsertFile(ctx, meta); err != nil {
		return NewInternalError("upload failed", err)
	}

	rows, err := ingest.Normalize(content, fileID)
	if err != nil {
		h.compensate(c, fileID)
		var parseErr *ingest.ParseError
		if errors.Is(err, ingest.ErrEmptyFile) || errors.As(err, &parseErr) {
			return NewBadRequestError("file is empty or unparseable", err)
		}
		return NewInternalError("error processing file data", err)
	}

	if err := h.store.InsertRows(ctx, rows); err != nil {
		h.compensate(c, fileID)
		return NewInternalError("upload failed", err)
	}

	return c.JSON(http.StatusOK, models.UploadResult{
		Message: fmt.Sprintf("File '%s' uploaded successfully. ID: %s", fileHeader.Filename, fileID),
		FileID:  fileID,
	})
}

// compensate deletes any rows written for the file, then its metadata.
// Cleanup failures are logged, never returned: they must not mask the
// error that triggered the cleanup.
func (h *Handler) compensate(c echo.Context, fileID string) {
	ctx := c.Request().Context()
	if err := h.store.DeleteRows(ctx, fileID); err != nil {
		c.Logger().Errorf("cleanup: deleting rows for %s: %v", fileID, err)
	}
	if err := h.store.DeleteFile(ctx, fileID); err != nil {
		c.Logger().Errorf("cleanup: deleting metadata for %s: %v", fileID, err)
	}
}

// HandleListFiles returns uploaded files, newest first, optionally
// filtered by the owner header.
func (h *Handler) HandleListFiles(c echo.Context) error {
	files, err := h.store.ListFiles(c.Request().Context(), ownerFilter(c))
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleDeleteFile removes a file's rows and metadata. Owner-checked like
// the read endpoints.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	fileID := c.Param("file_id")
	if fileID == "" {
		return NewValidationError("file_id")
	}

	ctx := c.Request().Context()
	if _, err := h.store.GetFile(ctx, fileID, ownerFilter(c)); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return NewNotFoundError("file")
		}
		return NewInternalError("failed to load file", err)
	}

	if err := h.store.DeleteRows(ctx, fileID); err != nil {
		return NewInternalError("failed to delete file data", err)
	}
	if err := h.store.DeleteFile(ctx, fileID); err != nil {
		return NewInternalError("failed to delete file", err)
	}

	return c.NoContent(http.StatusNoContent)
}
