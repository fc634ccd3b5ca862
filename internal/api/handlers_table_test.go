// handlers_table_test.go - Tests for paginated table view handlers
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sparelens/backend/internal/models"
	"github.com/sparelens/backend/internal/testutil"
	"github.com/vmihailenco/msgpack/v5"
)

func seedTableStore(t *testing.T) *testutil.MockStore {
	t.Helper()
	store := testutil.NewMockStore()
	ctx := context.Background()

	store.InsertFile(ctx, &models.UploadedFile{ID: "f1", OriginalFilename: "cities.csv", UploadDate: time.Now(), Owner: "a@x.com"})

	cols := []string{"city", "pop"}
	store.InsertRows(ctx, []models.Row{
		{FileID: "f1", Data: models.RowData{Columns: cols, Values: map[string]any{"city": "Oslo", "pop": int64(700000)}}},
		{FileID: "f1", Data: models.RowData{Columns: cols, Values: map[string]any{"city": "Bergen", "pop": int64(290000)}}},
		{FileID: "f1", Data: models.RowData{Columns: cols, Values: map[string]any{"city": "Malmo", "pop": int64(360000)}}},
	})
	return store
}

func tableRequest(t *testing.T, handler *Handler, fileID, query, owner string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/data/"+fileID+"?"+query, nil)
	if owner != "" {
		req.Header.Set("user_email", owner)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("file_id")
	c.SetParamValues(fileID)
	return rec, handler.HandleTableData(c)
}

func decodeTable(t *testing.T, rec *httptest.ResponseRecorder) *models.TableData {
	t.Helper()
	var payload models.TableData
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	return &payload
}

func TestHandleTableData(t *testing.T) {
	t.Run("default page", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		rec, err := tableRequest(t, handler, "f1", "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}

		payload := decodeTable(t, rec)
		if payload.TotalCount != 3 {
			t.Errorf("expected total 3, got %d", payload.TotalCount)
		}
		if payload.Page != 1 || payload.PageSize != 10 {
			t.Errorf("expected defaults page=1 page_size=10, got %d/%d", payload.Page, payload.PageSize)
		}
		if len(payload.Data) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(payload.Data))
		}
		if len(payload.Columns) != 2 || payload.Columns[0] != "city" || payload.Columns[1] != "pop" {
			t.Errorf("expected columns [city pop], got %v", payload.Columns)
		}

		var first map[string]any
		if err := json.Unmarshal(payload.Data[0], &first); err != nil {
			t.Fatalf("failed to unmarshal row: %v", err)
		}
		if first["city"] != "Oslo" {
			t.Errorf("expected first row Oslo, got %v", first["city"])
		}
	})

	t.Run("page beyond the end", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		rec, err := tableRequest(t, handler, "f1", "page=99&page_size=2", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		payload := decodeTable(t, rec)
		if len(payload.Data) != 0 {
			t.Errorf("expected empty page, got %d rows", len(payload.Data))
		}
		if payload.TotalCount != 3 {
			t.Errorf("expected total to stay 3, got %d", payload.TotalCount)
		}
		if payload.Columns == nil || len(payload.Columns) != 0 {
			t.Errorf("expected empty column list, got %v", payload.Columns)
		}
	})

	t.Run("page size clamped", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		rec, err := tableRequest(t, handler, "f1", "page_size=5000", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := decodeTable(t, rec).PageSize; got != 1000 {
			t.Errorf("expected page_size clamped to 1000, got %d", got)
		}
	})

	t.Run("search filters count", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		rec, err := tableRequest(t, handler, "f1", "search_query=BERG", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		payload := decodeTable(t, rec)
		if payload.TotalCount != 1 || len(payload.Data) != 1 {
			t.Errorf("expected a single match, got total=%d rows=%d", payload.TotalCount, len(payload.Data))
		}
	})

	t.Run("search wildcards are literal", func(t *testing.T) {
		store := testutil.NewMockStore()
		ctx := context.Background()
		store.InsertFile(ctx, &models.UploadedFile{ID: "f1", OriginalFilename: "users.csv", UploadDate: time.Now(), Owner: "anonymous"})
		cols := []string{"name"}
		store.InsertRows(ctx, []models.Row{
			{FileID: "f1", Data: models.RowData{Columns: cols, Values: map[string]any{"name": "user_1"}}},
			{FileID: "f1", Data: models.RowData{Columns: cols, Values: map[string]any{"name": "userx1"}}},
		})
		handler := NewHandler(store, "test")

		rec, err := tableRequest(t, handler, "f1", "search_query=user_1", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		payload := decodeTable(t, rec)
		if payload.TotalCount != 1 || len(payload.Data) != 1 {
			t.Fatalf("expected underscore to match only itself, got total=%d rows=%d", payload.TotalCount, len(payload.Data))
		}
		var row map[string]any
		if err := json.Unmarshal(payload.Data[0], &row); err != nil {
			t.Fatalf("failed to unmarshal row: %v", err)
		}
		if row["name"] != "user_1" {
			t.Errorf("expected user_1, got %v", row["name"])
		}
	})

	t.Run("sorted page", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		rec, err := tableRequest(t, handler, "f1", "sort_by=city&sort_order=desc", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		payload := decodeTable(t, rec)
		var first map[string]any
		if err := json.Unmarshal(payload.Data[0], &first); err != nil {
			t.Fatalf("failed to unmarshal row: %v", err)
		}
		if first["city"] != "Oslo" {
			t.Errorf("expected Oslo first descending, got %v", first["city"])
		}
	})

	t.Run("unknown file", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		_, err := tableRequest(t, handler, "nope", "", "")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Code != "NOT_FOUND" {
			t.Errorf("expected NOT_FOUND, got %s", apiErr.Code)
		}
	})

	t.Run("owner mismatch is not found", func(t *testing.T) {
		handler := NewHandler(seedTableStore(t), "test")

		_, err := tableRequest(t, handler, "f1", "", "b@y.com")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected APIError, got %T", err)
		}
		if apiErr.Code != "NOT_FOUND" {
			t.Errorf("expected NOT_FOUND, got %s", apiErr.Code)
		}
	})
}

func TestHandleTableDataMsgpack(t *testing.T) {
	handler := NewHandler(seedTableStore(t), "test")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/data/f1/msgpack?page_size=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("file_id")
	c.SetParamValues("f1")

	if err := handler.HandleTableDataMsgpack(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/msgpack" {
		t.Errorf("expected application/msgpack, got %s", ct)
	}

	var payload struct {
		Data       []map[string]any `msgpack:"data"`
		TotalCount int              `msgpack:"total_count"`
		Page       int              `msgpack:"page"`
		PageSize   int              `msgpack:"page_size"`
		Columns    []string         `msgpack:"columns"`
	}
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode msgpack: %v", err)
	}
	if payload.TotalCount != 3 || payload.PageSize != 2 {
		t.Errorf("expected total=3 page_size=2, got %d/%d", payload.TotalCount, payload.PageSize)
	}
	if len(payload.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(payload.Data))
	}
	if payload.Data[0]["city"] != "Oslo" {
		t.Errorf("expected first row Oslo, got %v", payload.Data[0]["city"])
	}
	if len(payload.Columns) != 2 {
		t.Errorf("expected 2 columns, got %v", payload.Columns)
	}
}
