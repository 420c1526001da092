package imports

// worker.go implements the single sequential worker lane. Imports are
// write-heavy, multi-step, and share the same downstream tables, so they are
// deliberately not run in parallel: one goroutine drains a bounded FIFO
// queue, which keeps entity ordering and createdEntitiesCount deterministic.
//
// Backpressure: when the queue is full, Submit runs the job synchronously on
// the caller's goroutine instead of rejecting it. Callers self-throttle;
// submissions are never lost. A job that starts is never cancelled mid-run,
// so a stuck object store call blocks the lane for everything queued behind
// it, which is an accepted risk.

import (
	"context"
	"sync"
)

// DefaultQueueCapacity is used when the configured capacity is not positive.
const DefaultQueueCapacity = 100

// RunFunc executes one import job to a terminal state.
type RunFunc func(ctx context.Context, job Job)

// Worker is the sequential import lane.
type Worker struct {
	run   RunFunc
	queue chan Job

	startOnce sync.Once
	done      chan struct{}

	mu       sync.Mutex
	inFlight sync.WaitGroup
	stopped  bool
}

// NewWorker creates a lane with the given queue capacity.
func NewWorker(capacity int, run RunFunc) *Worker {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Worker{
		run:   run,
		queue: make(chan Job, capacity),
		done:  make(chan struct{}),
	}
}

// Start launches the lane goroutine. Jobs run with the given context, which
// should outlive HTTP requests (use the server's background context).
// Calling Start more than once is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.loop(ctx)
	})
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.run(ctx, job)
			w.inFlight.Done()
		}
	}
}

// Submit enqueues a job for the lane, preserving submission order. When the
// queue is full the job runs synchronously on the calling goroutine rather
// than being rejected.
func (w *Worker) Submit(ctx context.Context, job Job) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.run(ctx, job)
		return
	}

	// The non-blocking send happens under the lock so Stop cannot close the
	// queue between the stopped check and the send.
	w.inFlight.Add(1)
	enqueued := false
	select {
	case w.queue <- job:
		enqueued = true
	default:
	}
	w.mu.Unlock()

	if !enqueued {
		// Queue full: caller-runs backpressure.
		defer w.inFlight.Done()
		w.run(ctx, job)
	}
}

// QueueLen returns the number of queued (not yet started) jobs.
func (w *Worker) QueueLen() int {
	return len(w.queue)
}

// Stop prevents further queueing and waits for queued and in-flight jobs to
// finish, or for ctx to expire. Jobs submitted after Stop run synchronously
// on the submitting goroutine.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		w.inFlight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
