// interfaces.go - Store interface consumed by the handlers
package api

import (
	"context"
	"encoding/json"

	"github.com/sparelens/backend/internal/docstore"
	"github.com/sparelens/backend/internal/models"
)

// DocumentStore is the persistence boundary the handlers depend on.
// *docstore.Store implements it; tests substitute a mock.
type DocumentStore interface {
	InsertFile(ctx context.Context, f *models.UploadedFile) error
	GetFile(ctx context.Context, id, owner string) (*models.UploadedFile, error)
	ListFiles(ctx context.Context, owner string) ([]models.FileSummary, error)
	DeleteFile(ctx context.Context, id string) error
	InsertRows(ctx context.Context, rows []models.Row) error
	DeleteRows(ctx context.Context, fileID string) error
	QueryRows(ctx context.Context, q docstore.RowQuery) ([]json.RawMessage, int, error)
	AggregateSum(ctx context.Context, fileID, xColumn, yColumn string) ([]models.ChartPoint, error)
}
