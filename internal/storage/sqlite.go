package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteWriter is a local object store backed by a single SQLite table.
// It stands in for S3 on development machines and in tests.
type SQLiteWriter struct {
	db *sql.DB
}

// Object is one stored object
type Object struct {
	Bucket      string
	Key         string
	Body        []byte
	ContentType string
	UpdatedAt   time.Time
}

// NewSQLiteWriter opens (or creates) the object database at dbPath
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	w := &SQLiteWriter{db: db}

	if err := w.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return w, nil
}

func configureSQLite(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return nil
}

func (w *SQLiteWriter) initSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS objects (
		bucket TEXT NOT NULL,
		key TEXT NOT NULL,
		body BLOB NOT NULL,
		content_type TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (bucket, key)
	);`

	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create objects table: %w", err)
	}

	return nil
}

// PutObject stores body under bucket/key, replacing any previous content
func (w *SQLiteWriter) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("%w: bucket and key are required", ErrDestination)
	}

	_, err := w.db.ExecContext(ctx, `INSERT INTO objects (bucket, key, body, content_type, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (bucket, key) DO UPDATE SET
			body = excluded.body,
			content_type = excluded.content_type,
			updated_at = excluded.updated_at`,
		bucket, key, body, contentType, time.Now().UTC(),
	)
	if err != nil {
		return errors.Join(ErrTransport, fmt.Errorf("failed to store object: %w", err))
	}

	return nil
}

// GetObject returns the object stored under bucket/key, or sql.ErrNoRows
func (w *SQLiteWriter) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	obj := &Object{Bucket: bucket, Key: key}
	err := w.db.QueryRowContext(ctx,
		`SELECT body, content_type, updated_at FROM objects WHERE bucket = ? AND key = ?`,
		bucket, key,
	).Scan(&obj.Body, &obj.ContentType, &obj.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// CountObjects returns how many objects are stored in bucket
func (w *SQLiteWriter) CountObjects(ctx context.Context, bucket string) (int, error) {
	var n int
	if err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects WHERE bucket = ?`, bucket).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
