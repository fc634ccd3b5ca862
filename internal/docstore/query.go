package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// RowQuery describes one table-view request: which file, the optional
// search term and sort, and the page window. The zero SortBy sorts by
// internal row id, which keeps pagination deterministic.
type RowQuery struct {
	FileID    string
	Search    string
	SortBy    string
	SortOrder string // "desc" for descending; anything else is ascending
	Page      int    // 1-indexed
	PageSize  int
}

// QueryRows compiles the query into SQL, returning the page of row
// documents as raw JSON plus the total count of rows matching the same
// filter (search included, pagination excluded).
func (s *Store) QueryRows(ctx context.Context, q RowQuery) ([]json.RawMessage, int, error) {
	where, args := buildRowFilter(q)

	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rows WHERE "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	page := make([]json.RawMessage, 0, q.PageSize)
	if total == 0 {
		return page, 0, nil
	}

	orderBy := "id ASC"
	selectArgs := args
	if q.SortBy != "" {
		dir := "ASC"
		if q.SortOrder == "desc" {
			dir = "DESC"
		}
		// Sort on the column's JSON string projection; ties fall back to
		// id so the order is stable for a fixed sort.
		orderBy = fmt.Sprintf("json_extract_string(data, ?) %s, id ASC", dir)
		selectArgs = append(append([]any{}, args...), jsonPath(q.SortBy))
	}

	offset := (q.Page - 1) * q.PageSize
	query := fmt.Sprintf(
		"SELECT data FROM rows WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		where, orderBy, q.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, selectArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("page query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, 0, err
		}
		page = append(page, json.RawMessage(data))
	}
	return page, total, rows.Err()
}

// buildRowFilter assembles the WHERE clause shared by the count and page
// queries. Search matches the precomputed lowercase value projection, so
// only cell values participate, never column names. The term is a literal
// substring: LIKE metacharacters in it are escaped, not interpreted.
func buildRowFilter(q RowQuery) (string, []any) {
	where := "file_id = ?"
	args := []any{q.FileID}
	if q.Search != "" {
		where += ` AND search_text LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q.Search))+"%")
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// jsonPath builds a DuckDB JSON path addressing one top-level key.
func jsonPath(column string) string {
	escaped := strings.ReplaceAll(column, `"`, `\"`)
	return `$."` + escaped + `"`
}

// PageColumns derives the column list for a page from its first row's
// document, preserving stored key order. Sparse files can therefore report
// different columns on different pages; callers surface exactly what the
// page holds.
func PageColumns(page []json.RawMessage) ([]string, error) {
	if len(page) == 0 {
		return []string{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(page[0])))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decoding row document: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("row document is not an object")
	}

	columns := []string{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding row document: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("row document key is not a string")
		}
		columns = append(columns, key)

		if err := skipValue(dec); err != nil {
			return nil, fmt.Errorf("decoding row document: %w", err)
		}
	}
	return columns, nil
}

// skipValue consumes one JSON value from the decoder, descending through
// nested containers.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
