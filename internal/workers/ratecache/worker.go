package ratecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Warmer is the slice of the rates service the worker drives.
type Warmer interface {
	WarmCache(ctx context.Context) error
}

// Worker periodically refreshes the spot rate cache so overview requests
// rarely pay the database round trip for current rates.
type Worker struct {
	cron     *cron.Cron
	warmer   Warmer
	schedule string
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// NewWorker creates a rate cache worker. schedule is a standard cron
// expression.
func NewWorker(warmer Warmer, schedule string, logger *zap.Logger) *Worker {
	return &Worker{
		cron:     cron.New(),
		warmer:   warmer,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the schedule and begins running. The cache is warmed once
// immediately so the service does not start cold.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("rate cache worker already running")
	}

	if _, err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return fmt.Errorf("invalid rate cache schedule %q: %w", w.schedule, err)
	}

	w.cron.Start()
	w.running = true
	w.logger.Info("rate cache worker started", zap.String("schedule", w.schedule))

	go w.run()
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	// Waiting happens outside the lock; an in-flight run still needs it to
	// record its outcome.
	<-w.cron.Stop().Done()
	w.logger.Info("rate cache worker stopped")
}

// LastRun reports the completion time and outcome of the most recent run.
func (w *Worker) LastRun() (time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun, w.lastErr
}

func (w *Worker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	err := w.warmer.WarmCache(ctx)

	w.mu.Lock()
	w.lastRun = time.Now()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("rate cache warm failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	w.logger.Debug("rate cache warmed", zap.Duration("duration", time.Since(start)))
}
