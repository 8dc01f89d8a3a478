// Package tasks runs side effects of a chat request (transcript writes, lead
// capture, hit counting) off the response path.
//
// Work goes through a bounded buffer drained by a fixed set of workers.
// Submit never blocks: when the buffer is full the task is dropped and
// counted. Each task runs with its own timeout, detached from the request
// context, so a finished HTTP response does not cancel it.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"aspada.com/assistant/internal/metrics"
)

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	TaskTimeout time.Duration
}

type Queue struct {
	cfg    Config
	tasks  chan Task
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(cfg Config, logger *zap.Logger) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Second
	}

	q := &Queue{
		cfg:    cfg,
		tasks:  make(chan Task, cfg.QueueSize),
		logger: logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Submit enqueues t and reports whether it was accepted.
func (q *Queue) Submit(t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("background queue closed, dropping task", zap.String("task", t.Name))
		metrics.BackgroundTasks.WithLabelValues(t.Name, "dropped").Inc()
		return false
	}

	select {
	case q.tasks <- t:
		metrics.BackgroundQueueDepth.Inc()
		return true
	default:
		q.logger.Warn("background queue full, dropping task", zap.String("task", t.Name))
		metrics.BackgroundTasks.WithLabelValues(t.Name, "dropped").Inc()
		return false
	}
}

// Close stops accepting work and waits for queued tasks to finish or for ctx
// to expire, whichever comes first.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background queue did not drain: %w", ctx.Err())
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		metrics.BackgroundQueueDepth.Dec()
		q.run(t)
	}
}

func (q *Queue) run(t Task) {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(100*(1<<(attempt-2))) * time.Millisecond)
		}
		if err = q.attempt(t); err == nil {
			metrics.BackgroundTasks.WithLabelValues(t.Name, "ok").Inc()
			return
		}
		q.logger.Warn("background task attempt failed",
			zap.String("task", t.Name), zap.Int("attempt", attempt), zap.Error(err))
	}

	q.logger.Error("background task failed", zap.String("task", t.Name), zap.Error(err))
	metrics.BackgroundTasks.WithLabelValues(t.Name, "failed").Inc()
}

func (q *Queue) attempt(t Task) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.TaskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Run(ctx)
}
