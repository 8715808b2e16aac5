package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/docindex/internal/document"
	ierrors "github.com/Aman-CERP/docindex/internal/errors"
)

// tableNamePattern restricts table names interpolated into SQL.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// StoredRecord is a record read back from the SQLite store.
type StoredRecord struct {
	ID        int64
	Record    document.Record
	CreatedAt time.Time
}

// SQLiteStore writes records to a local SQLite database with the same
// columns as the remote table. Embeddings are stored as float32 blobs.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	table  string
	closed bool
}

// Verify interface implementation at compile time
var (
	_ RecordStore = (*SQLiteStore)(nil)
	_ Searcher    = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at path.
// An empty path opens an in-memory database for testing.
func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, ierrors.InvalidConfigError(fmt.Sprintf("invalid table name %q", table), nil)
	}

	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; also keeps an in-memory database on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path, table: table}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo     TEXT NOT NULL,
		contenido  TEXT NOT NULL,
		embedding  BLOB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`, s.table)

	_, err := s.db.Exec(schema)
	return err
}

// Insert appends rec.
func (s *SQLiteStore) Insert(ctx context.Context, rec document.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	query := fmt.Sprintf(`INSERT INTO %s (titulo, contenido, embedding, created_at) VALUES (?, ?, ?, ?)`, s.table)
	if _, err := s.db.ExecContext(ctx, query,
		rec.Title, rec.Content, EncodeEmbedding(rec.Embedding), time.Now().UTC()); err != nil {
		return ierrors.StoreUploadError("failed to insert record", "", err).
			WithDetail("title", rec.Title).
			WithDetail("path", s.path)
	}
	return nil
}

// Ping checks the database connection and table.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return ierrors.StoreUploadError("sqlite store is not usable", "", err).WithDetail("path", s.path)
	}
	return nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// List returns all records in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := fmt.Sprintf(`SELECT id, titulo, contenido, embedding, created_at FROM %s ORDER BY id`, s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredRecord
	for rows.Next() {
		var (
			r       StoredRecord
			blob    []byte
			created string
		)
		if err := rows.Scan(&r.ID, &r.Record.Title, &r.Record.Content, &blob, &created); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.CreatedAt = parseTimestamp(created)
		vec, err := DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.ID, err)
		}
		r.Record.Embedding = vec
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search ranks every stored record against query by cosine similarity.
// The whole table is read; it is meant for local, offline use.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, opts MatchOptions) ([]Match, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, ierrors.StoreQueryError("failed to read records", "", err).WithDetail("path", s.path)
	}
	return rankMatches(records, query, opts.withDefaults()), nil
}

// timestampLayouts covers the driver's time encoding and CURRENT_TIMESTAMP.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time for unrecognized values.
func parseTimestamp(v string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Backend returns BackendSQLite.
func (s *SQLiteStore) Backend() string {
	return BackendSQLite
}

// Path returns the database path ("" for in-memory).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close checkpoints and closes the database. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}
