// Package storage writes the CSV export to an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sfo_flights/internal/models"
)

// CSVContentType is set on every exported object
const CSVContentType = "text/csv; charset=utf-8"

// Upload failures are classified into one of these kinds. Match with errors.Is.
var (
	ErrSerialization = errors.New("failed to serialize table")
	ErrAuth          = errors.New("object store rejected credentials")
	ErrDestination   = errors.New("invalid object store destination")
	ErrTransport     = errors.New("object store write failed")
)

// ObjectWriter stores body under bucket/key, replacing any existing object
type ObjectWriter interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Uploader renders tables as CSV and writes them through an ObjectWriter
type Uploader struct {
	writer ObjectWriter
}

// NewUploader creates an uploader on top of the given backend
func NewUploader(w ObjectWriter) *Uploader {
	return &Uploader{writer: w}
}

// Location formats bucket and key as an s3:// URI for log lines
func Location(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// Upload writes table as CSV to bucket/key. The returned error wraps exactly
// one of ErrSerialization, ErrAuth, ErrDestination or ErrTransport.
func (u *Uploader) Upload(ctx context.Context, table *models.FlightRecordTable, bucket, key string) error {
	location := Location(bucket, key)

	if bucket == "" || key == "" {
		err := fmt.Errorf("%w: bucket and key are required, got %q", ErrDestination, location)
		slog.Error("Unable to write CSV export", "location", location, "kind", Kind(err), "error", err)
		return err
	}

	body, err := table.CSV()
	if err != nil {
		err = errors.Join(ErrSerialization, err)
		slog.Error("Unable to write CSV export", "location", location, "kind", Kind(err), "error", err)
		return err
	}

	slog.Info("Writing CSV export", "location", location, "rows", table.Len(), "bytes", len(body))

	if err := u.writer.PutObject(ctx, bucket, key, body, CSVContentType); err != nil {
		if Kind(err) == "" {
			err = errors.Join(ErrTransport, err)
		}
		slog.Error("Unable to write CSV export", "location", location, "kind", Kind(err), "error", err)
		return err
	}

	return nil
}

// Kind names the class of an upload error, or "" if err is not classified
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrSerialization):
		return "serialization"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrDestination):
		return "destination"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return ""
	}
}

// Retryable reports whether another attempt could succeed. Only transport
// failures are retried; bad credentials or destinations fail the same way again.
func Retryable(err error) bool {
	return Kind(err) == "transport"
}
