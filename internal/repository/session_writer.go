package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"codetime/internal/infrastructure/logging"
	"codetime/internal/types"
)

// ErrWriterClosed is returned when work is submitted after Drain.
var ErrWriterClosed = errors.New("session writer is closed")

// ErrDrainTimeout is returned when the queue does not empty within the
// shutdown bound; remaining work is abandoned.
var ErrDrainTimeout = errors.New("session writer drain timed out")

type writeJob struct {
	sessions []types.CodingSession
	done     chan error
}

// SessionWriter serializes all mutating session writes onto a single
// background goroutine so concurrent flushes never interleave a
// partial batch. Reads bypass it and hit the repository directly.
type SessionWriter struct {
	repo   SessionRepository
	logger logging.Logger

	mu     sync.Mutex
	jobs   chan writeJob
	closed bool
	done   chan struct{}
}

// NewSessionWriter starts the writer goroutine with the given queue
// depth (0 falls back to a small default).
func NewSessionWriter(repo SessionRepository, queueSize int, logger logging.Logger) *SessionWriter {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	w := &SessionWriter{
		repo:   repo,
		logger: logger,
		jobs:   make(chan writeJob, queueSize),
		done:   make(chan struct{}),
	}

	go w.run()
	return w
}

func (w *SessionWriter) run() {
	defer close(w.done)

	for job := range w.jobs {
		// Each batch gets its own timeout so one stuck write cannot
		// wedge the queue forever.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := w.repo.InsertSessions(ctx, job.sessions, types.BatchStrategyUpsert)
		cancel()

		if err != nil {
			w.logger.Error("Failed to persist session batch", "error", err, "batch_size", len(job.sessions))
		}
		if job.done != nil {
			job.done <- err
			close(job.done)
		}
	}
}

// Submit enqueues a batch for the writer goroutine. The returned
// channel receives the write result once the batch has been attempted.
func (w *SessionWriter) Submit(sessions []types.CodingSession) <-chan error {
	result := make(chan error, 1)

	if len(sessions) == 0 {
		result <- nil
		close(result)
		return result
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		result <- ErrWriterClosed
		close(result)
		return result
	}
	w.jobs <- writeJob{sessions: sessions, done: result}
	w.mu.Unlock()

	return result
}

// SubmitAndWait enqueues a batch and blocks until it has been written
// or the context is cancelled.
func (w *SessionWriter) SubmitAndWait(ctx context.Context, sessions []types.CodingSession) error {
	select {
	case err := <-w.Submit(sessions):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain closes the queue and waits up to timeout for pending writes to
// finish. On timeout the remaining work is abandoned and logged; the
// writer goroutine still finishes the queue in the background but the
// caller stops waiting.
func (w *SessionWriter) Drain(timeout time.Duration) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-time.After(timeout):
		w.logger.Error("Abandoning pending session writes after drain timeout", "timeout", timeout)
		return ErrDrainTimeout
	}
}
