package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sparelens/backend/internal/models"
)

// AggregateSum groups a file's rows by the raw value of xColumn and sums
// the numeric coercion of yColumn per group. Values that do not cast to a
// double contribute nothing; a group whose every value is non-numeric sums
// to NULL and is dropped rather than returned as zero.
func (s *Store) AggregateSum(ctx context.Context, fileID, xColumn, yColumn string) ([]models.ChartPoint, error) {
	query := `
		SELECT json_extract(data, ?) AS x,
		       SUM(TRY_CAST(json_extract_string(data, ?) AS DOUBLE)) AS y
		FROM rows
		WHERE file_id = ?
		GROUP BY 1
		HAVING SUM(TRY_CAST(json_extract_string(data, ?) AS DOUBLE)) IS NOT NULL
		ORDER BY 1
	`
	xPath, yPath := jsonPath(xColumn), jsonPath(yColumn)
	rows, err := s.db.QueryContext(ctx, query, xPath, yPath, fileID, yPath)
	if err != nil {
		return nil, fmt.Errorf("aggregation query failed: %w", err)
	}
	defer rows.Close()

	points := make([]models.ChartPoint, 0)
	for rows.Next() {
		var rawX sql.NullString
		var sum float64
		if err := rows.Scan(&rawX, &sum); err != nil {
			return nil, err
		}

		// x comes back as JSON text so the group keeps its original type
		// (string vs number vs bool vs null) in the response.
		var x any
		if rawX.Valid {
			if err := json.Unmarshal([]byte(rawX.String), &x); err != nil {
				x = rawX.String
			}
		}

		points = append(points, models.ChartPoint{
			xColumn: x,
			yColumn: sum,
		})
	}
	return points, rows.Err()
}
