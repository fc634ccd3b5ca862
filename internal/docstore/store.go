// Package docstore persists uploaded-file metadata and normalized row
// documents in an embedded DuckDB database and compiles table/chart
// requests into SQL over them.
package docstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/marcboeker/go-duckdb"
	"github.com/sparelens/backend/internal/models"
)

// ErrNotFound is returned when a file id does not exist or is owned by a
// different owner tag. Callers must not distinguish the two cases.
var ErrNotFound = errors.New("file not found")

// Store is the document store shared by all requests. The embedded
// database/sql pool is safe for concurrent use; the mutex only guards row
// id assignment during bulk inserts.
type Store struct {
	db     *sql.DB
	dbPath string

	mu        sync.Mutex
	nextRowID int64
}

// Open creates (or reopens) the database at path, bootstraps the schema and
// verifies the store is reachable. The process must not become ready if
// this fails.
func Open(path string) (*Store, error) {
	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='1GB'",
			"PRAGMA threads=4",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging store: %w", err)
	}

	// data holds the row document as JSON text in a VARCHAR column; the
	// JSON functions accept it directly and the Appender stays on plain
	// types.
	schema := []string{
		`CREATE TABLE IF NOT EXISTS files (
			id                VARCHAR PRIMARY KEY,
			original_filename VARCHAR NOT NULL,
			stored_filename   VARCHAR NOT NULL,
			file_size         BIGINT NOT NULL,
			mime_type         VARCHAR NOT NULL,
			upload_date       TIMESTAMP NOT NULL,
			owner             VARCHAR NOT NULL DEFAULT 'anonymous'
		)`,
		`CREATE TABLE IF NOT EXISTS rows (
			id          BIGINT NOT NULL,
			file_id     VARCHAR NOT NULL,
			data        VARCHAR NOT NULL,
			search_text VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_file ON rows(file_id)`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner ON files(owner)`,
		`CREATE INDEX IF NOT EXISTS idx_files_upload_date ON files(upload_date)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrapping schema: %w", err)
		}
	}

	var nextID int64
	if err := db.QueryRow("SELECT COALESCE(MAX(id), 0) + 1 FROM rows").Scan(&nextID); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading row id watermark: %w", err)
	}

	return &Store{db: db, dbPath: path, nextRowID: nextID}, nil
}

// Ping reports whether the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database. Call once during shutdown.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertFile records metadata for a newly uploaded file.
func (s *Store) InsertFile(ctx context.Context, f *models.UploadedFile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, original_filename, stored_filename, file_size, mime_type, upload_date, owner)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.OriginalFilename, f.StoredFilename, f.FileSize, f.MimeType, f.UploadDate, f.Owner)
	if err != nil {
		return fmt.Errorf("inserting file metadata: %w", err)
	}
	return nil
}

// GetFile returns file metadata by id. A non-empty owner must match the
// stored owner tag; absence and mismatch both yield ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id, owner string) (*models.UploadedFile, error) {
	query := `
		SELECT id, original_filename, stored_filename, file_size, mime_type, upload_date, owner
		FROM files WHERE id = ?
	`
	args := []any{id}
	if owner != "" {
		query += " AND owner = ?"
		args = append(args, owner)
	}

	var f models.UploadedFile
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&f.ID, &f.OriginalFilename, &f.StoredFilename, &f.FileSize, &f.MimeType, &f.UploadDate, &f.Owner)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading file metadata: %w", err)
	}
	return &f, nil
}

// ListFiles returns file summaries sorted by upload date descending. An
// empty owner lists every file.
func (s *Store) ListFiles(ctx context.Context, owner string) ([]models.FileSummary, error) {
	query := "SELECT id, original_filename, upload_date FROM files"
	var args []any
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY upload_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	list := make([]models.FileSummary, 0)
	for rows.Next() {
		var f models.FileSummary
		if err := rows.Scan(&f.ID, &f.OriginalFilename, &f.UploadDate); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

// DeleteFile removes file metadata. Used by the compensating cleanup path
// and by explicit deletion.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting file metadata: %w", err)
	}
	return nil
}

// InsertRows bulk-inserts normalized rows through the DuckDB Appender.
// Ids are assigned from a process-wide monotonic counter so untouched
// pagination stays stable in insertion order. The write is batched, not
// transactional; callers compensate on failure.
func (s *Store) InsertRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	// The lock covers only the id block assignment so concurrent uploads
	// append in parallel. The watermark advances even if the insert later
	// fails: a failed insert may have flushed a partial batch, and those
	// ids must not be reissued before the compensating delete runs.
	s.mu.Lock()
	baseID := s.nextRowID
	s.nextRowID = baseID + int64(len(rows))
	s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("getting connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		dConn, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "rows")
		if err != nil {
			return fmt.Errorf("creating appender: %w", err)
		}
		defer appender.Close()

		for i := range rows {
			data, err := json.Marshal(rows[i].Data)
			if err != nil {
				return fmt.Errorf("encoding row %d: %w", i, err)
			}
			if err := appender.AppendRow(
				baseID+int64(i),
				rows[i].FileID,
				string(data),
				rows[i].Data.SearchText(),
			); err != nil {
				return fmt.Errorf("appending row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
	return err
}

// DeleteRows removes every row belonging to a file.
func (s *Store) DeleteRows(ctx context.Context, fileID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM rows WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("deleting rows: %w", err)
	}
	return nil
}
