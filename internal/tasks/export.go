package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sfo_flights/internal/dataapi"
	"sfo_flights/internal/models"
	"sfo_flights/internal/retry"
	"sfo_flights/internal/storage"
)

var (
	// ErrFetch marks a run that failed before anything was written
	ErrFetch = errors.New("fetch failed")
	// ErrUpload marks a run whose export could not be written
	ErrUpload = errors.New("upload failed")
)

// Fetcher retrieves the flight records for one run
type Fetcher interface {
	Fetch(ctx context.Context, q dataapi.Query) (*models.FlightRecordTable, error)
}

// Uploader persists the table for one run
type Uploader interface {
	Upload(ctx context.Context, table *models.FlightRecordTable, bucket, key string) error
}

// Destination is the fixed object every run overwrites
type Destination struct {
	Bucket string
	Key    string
}

// ExportTask fetches SFO flights and writes them as CSV to object storage
type ExportTask struct {
	fetcher      Fetcher
	uploader     Uploader
	query        dataapi.Query
	dest         Destination
	fetchPolicy  retry.Policy
	uploadPolicy retry.Policy
	interval     time.Duration
}

// ExportConfig holds the settings of an ExportTask
type ExportConfig struct {
	Query        dataapi.Query
	Destination  Destination
	FetchPolicy  retry.Policy
	UploadPolicy retry.Policy
	Interval     time.Duration // only used when scheduled
}

// NewExportTask creates an export task
func NewExportTask(f Fetcher, u Uploader, cfg ExportConfig) *ExportTask {
	return &ExportTask{
		fetcher:      f,
		uploader:     u,
		query:        cfg.Query,
		dest:         cfg.Destination,
		fetchPolicy:  cfg.FetchPolicy,
		uploadPolicy: cfg.UploadPolicy,
		interval:     cfg.Interval,
	}
}

// Name implements scheduler.Task
func (e *ExportTask) Name() string {
	return "export-sfo-flights"
}

// Interval implements scheduler.Task
func (e *ExportTask) Interval() time.Duration {
	return e.interval
}

// Run performs one fetch then upload cycle. A fetch failure aborts the run
// before any write is attempted. Both failures are returned.
func (e *ExportTask) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := slog.With("run_id", runID, "task", e.Name())
	logger.Info("Starting export run")
	start := time.Now()

	var table *models.FlightRecordTable
	err := retry.Do(ctx, "fetch", e.fetchPolicy, func(ctx context.Context) error {
		t, err := e.fetcher.Fetch(ctx, e.query)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	if err != nil {
		logger.Error("Failed to fetch SFO flights", "error", err)
		return errors.Join(ErrFetch, err)
	}

	err = retry.Do(ctx, "upload", e.uploadPolicy, func(ctx context.Context) error {
		err := e.uploader.Upload(ctx, table, e.dest.Bucket, e.dest.Key)
		if err != nil && !storage.Retryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		logger.Error("Failed to write data to S3",
			"location", storage.Location(e.dest.Bucket, e.dest.Key),
			"kind", storage.Kind(err),
			"error", err,
		)
		return errors.Join(ErrUpload, fmt.Errorf("%s: %w", storage.Location(e.dest.Bucket, e.dest.Key), err))
	}

	logger.Info("Export run complete",
		"location", storage.Location(e.dest.Bucket, e.dest.Key),
		"rows", table.Len(),
		"duration", time.Since(start),
	)
	return nil
}
