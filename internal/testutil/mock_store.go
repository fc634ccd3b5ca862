// mock_store.go - In-memory DocumentStore implementation for testing
package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sparelens/backend/internal/docstore"
	"github.com/sparelens/backend/internal/models"
)

// MockStore implements the api.DocumentStore interface in memory with the
// same observable semantics as the DuckDB store. Error fields inject
// failures for the compensating-cleanup paths.
type MockStore struct {
	mu     sync.RWMutex
	files  map[string]*models.UploadedFile
	rows   []models.Row
	nextID int64

	InsertFileErr error
	InsertRowsErr error
	DeleteRowsErr error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		files:  make(map[string]*models.UploadedFile),
		nextID: 1,
	}
}

func (m *MockStore) InsertFile(_ context.Context, f *models.UploadedFile) error {
	if m.InsertFileErr != nil {
		return m.InsertFileErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *MockStore) GetFile(_ context.Context, id, owner string) (*models.UploadedFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[id]
	if !ok || (owner != "" && f.Owner != owner) {
		return nil, docstore.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockStore) ListFiles(_ context.Context, owner string) ([]models.FileSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]models.FileSummary, 0)
	for _, f := range m.files {
		if owner != "" && f.Owner != owner {
			continue
		}
		list = append(list, models.FileSummary{
			ID:               f.ID,
			OriginalFilename: f.OriginalFilename,
			UploadDate:       f.UploadDate,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadDate.After(list[j].UploadDate)
	})
	return list, nil
}

func (m *MockStore) DeleteFile(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, id)
	return nil
}

func (m *MockStore) InsertRows(_ context.Context, rows []models.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertRowsErr != nil {
		// Simulate a mid-batch failure: the first row lands before the
		// batch aborts, leaving a partial write to compensate for.
		if len(rows) > 0 {
			first := rows[0]
			first.ID = m.nextID
			m.nextID++
			m.rows = append(m.rows, first)
		}
		return m.InsertRowsErr
	}
	for _, r := range rows {
		r.ID = m.nextID
		m.nextID++
		m.rows = append(m.rows, r)
	}
	return nil
}

func (m *MockStore) DeleteRows(_ context.Context, fileID string) error {
	if m.DeleteRowsErr != nil {
		return m.DeleteRowsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, r := range m.rows {
		if r.FileID != fileID {
			kept = append(kept, r)
		}
	}
	m.rows = kept
	return nil
}

// RowCount reports how many rows a file currently has. Test helper.
func (m *MockStore) RowCount(fileID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.rows {
		if r.FileID == fileID {
			n++
		}
	}
	return n
}

// TotalRows reports how many rows exist across all files. Test helper.
func (m *MockStore) TotalRows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// HasFile reports whether metadata exists for a file. Test helper.
func (m *MockStore) HasFile(fileID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[fileID]
	return ok
}

func (m *MockStore) QueryRows(_ context.Context, q docstore.RowQuery) ([]json.RawMessage, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]models.Row, 0)
	needle := strings.ToLower(q.Search)
	for _, r := range m.rows {
		if r.FileID != q.FileID {
			continue
		}
		if needle != "" && !strings.Contains(r.Data.SearchText(), needle) {
			continue
		}
		matched = append(matched, r)
	}
	total := len(matched)

	if q.SortBy != "" {
		desc := q.SortOrder == "desc"
		sort.SliceStable(matched, func(i, j int) bool {
			a, aok := sortKey(matched[i].Data.Values[q.SortBy])
			b, bok := sortKey(matched[j].Data.Values[q.SortBy])
			if aok != bok {
				return aok // rows without the column sort last
			}
			if a == b {
				return matched[i].ID < matched[j].ID
			}
			if desc {
				return a > b
			}
			return a < b
		})
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	}

	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}

	page := make([]json.RawMessage, 0, end-start)
	for _, r := range matched[start:end] {
		data, err := json.Marshal(r.Data)
		if err != nil {
			return nil, 0, err
		}
		page = append(page, data)
	}
	return page, total, nil
}

// sortKey mirrors the store's json_extract_string projection: sort on the
// value's string form, NULLs last.
func sortKey(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		raw, _ := json.Marshal(t)
		return string(raw), true
	}
}

func (m *MockStore) AggregateSum(_ context.Context, fileID, xColumn, yColumn string) ([]models.ChartPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type group struct {
		x   any
		sum float64
		hit bool
	}
	groups := make(map[string]*group)
	var order []string

	for _, r := range m.rows {
		if r.FileID != fileID {
			continue
		}
		xVal := r.Data.Values[xColumn]
		key, _ := json.Marshal(xVal)
		g, ok := groups[string(key)]
		if !ok {
			g = &group{x: xVal}
			groups[string(key)] = g
			order = append(order, string(key))
		}
		if y, ok := numeric(r.Data.Values[yColumn]); ok {
			g.sum += y
			g.hit = true
		}
	}

	sort.Strings(order)
	points := make([]models.ChartPoint, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if !g.hit {
			continue // entirely non-numeric group is dropped, not zero
		}
		points = append(points, models.ChartPoint{xColumn: g.x, yColumn: g.sum})
	}
	return points, nil
}

// numeric mirrors TRY_CAST(... AS DOUBLE) over the value's string form.
func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
