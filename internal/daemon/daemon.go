package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"sfo_flights/internal/config"
	"sfo_flights/internal/dataapi"
	"sfo_flights/internal/retry"
	"sfo_flights/internal/scheduler"
	"sfo_flights/internal/storage"
	"sfo_flights/internal/tasks"
)

// Daemon wires the data API client, the storage backend and the export task
type Daemon struct {
	task   *tasks.ExportTask
	writer storage.ObjectWriter
}

// New builds every component from cfg
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	client, err := dataapi.New(cfg.API)
	if err != nil {
		return nil, fmt.Errorf("failed to create data API client: %w", err)
	}

	writer, err := newWriter(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	task := tasks.NewExportTask(client, storage.NewUploader(writer), tasks.ExportConfig{
		Query: dataapi.Query{
			Where: cfg.API.Where,
			Limit: cfg.API.Limit,
		},
		Destination: tasks.Destination{
			Bucket: cfg.Storage.Bucket,
			Key:    cfg.Storage.Key,
		},
		FetchPolicy: retry.Policy{
			Attempts:    cfg.Retry.FetchAttempts,
			Delay:       cfg.Retry.Delay,
			Exponential: cfg.Retry.Exponential,
		},
		UploadPolicy: retry.Policy{
			Attempts:    cfg.Retry.UploadAttempts,
			Delay:       cfg.Retry.Delay,
			Exponential: cfg.Retry.Exponential,
		},
		Interval: cfg.Schedule.Interval,
	})

	return &Daemon{task: task, writer: writer}, nil
}

func newWriter(ctx context.Context, cfg config.StorageConfig) (storage.ObjectWriter, error) {
	switch cfg.Backend {
	case "sqlite":
		slog.Info("Using local SQLite object store", "path", cfg.SQLitePath)
		return storage.NewSQLiteWriter(cfg.SQLitePath)
	case "s3", "":
		return storage.NewS3Writer(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// RunOnce runs a single export cycle
func (d *Daemon) RunOnce(ctx context.Context) error {
	return d.task.Run(ctx)
}

// Serve runs the export task on its interval until ctx is cancelled
func (d *Daemon) Serve(ctx context.Context) {
	sched := scheduler.New()
	sched.AddTask(d.task)
	sched.Run(ctx)
}

// Close releases the storage backend
func (d *Daemon) Close() error {
	if c, ok := d.writer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}
