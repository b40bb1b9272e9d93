package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of work run on a fixed interval
type Task interface {
	Run(ctx context.Context) error
	Interval() time.Duration
	Name() string
}

// Scheduler runs tasks immediately and then on each tick of their interval
type Scheduler struct {
	tasks []Task
}

// New creates an empty scheduler
func New() *Scheduler {
	return &Scheduler{}
}

// AddTask adds a task to the scheduler
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

// Run starts every task and blocks until ctx is cancelled and all in-flight
// runs have returned. A failing run is logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	slog.Info("Starting task scheduler", "task_count", len(s.tasks))
	for _, task := range s.tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			runTask(ctx, task)
		}(task)
	}

	wg.Wait()
	slog.Info("Task scheduler stopped")
}

// runTask runs a single task on its schedule
func runTask(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval())
	defer ticker.Stop()

	failures := 0
	run := func() {
		if err := task.Run(ctx); err != nil {
			failures++
			slog.Error("Error running task",
				"task", task.Name(),
				"consecutive_failures", failures,
				"error", err,
			)
			return
		}
		failures = 0
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
