package media

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/metrics"
)

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize     int
	Workers       int
	DeleteTimeout time.Duration
}

// Janitor deletes replaced or orphaned media in the background. Deletion is
// best effort: failures are logged and counted, never retried.
type Janitor struct {
	store   ObjectStore
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewJanitor starts cfg.Workers deletion workers.
func NewJanitor(store ObjectStore, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		store:   store,
		logger:  logger,
		timeout: cfg.DeleteTimeout,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Enqueue schedules the deletion of every non-empty location. It never
// blocks; when the queue is full the remaining locations are dropped.
func (j *Janitor) Enqueue(locations ...string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return ErrJanitorClosed
	}

	for _, location := range locations {
		if location == "" {
			continue
		}
		select {
		case j.jobs <- location:
			metrics.JanitorQueueDepth.Inc()
		default:
			j.logger.Warn("media janitor queue full, dropping deletion", "location", location)
			return ErrJanitorBusy
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for queued deletions to finish.
// When ctx expires first, in-flight deletions are cancelled.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.jobs)
	}
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		j.cancel()
		return ctx.Err()
	case <-done:
		j.cancel()
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	for location := range j.jobs {
		metrics.JanitorQueueDepth.Dec()
		if j.ctx.Err() != nil {
			continue
		}
		j.delete(location)
	}
}

func (j *Janitor) delete(location string) {
	ctx, cancel := context.WithTimeout(j.ctx, j.timeout)
	defer cancel()

	err := j.store.Delete(ctx, location)
	metrics.RecordDeletion(err)
	if err != nil {
		j.logger.Error("delete media", "location", location, "error", err)
		return
	}
	j.logger.Debug("deleted media", "location", location)
}
