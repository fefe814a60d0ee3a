// Package persist serializes transcript snapshots to a backing store.
//
// A Queue runs tasks one at a time, strictly in the order they were
// enqueued, on a single worker goroutine. A failing task is logged and
// does not stop later tasks. A Writer binds a Queue to exactly one target;
// retargeting means building a new Writer, never reusing the old queue.
package persist

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of queued work.
type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
	done chan struct{} // closed after run returns; nil unless someone waits
}

// Queue is an unbounded FIFO task queue with a single worker.
type Queue struct {
	log *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []job
	closed  bool
	stopped chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue starts the worker. Close must be called to release it.
func NewQueue(log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{log: log, stopped: make(chan struct{}), ctx: ctx, cancel: cancel}
	q.cond = sync.NewCond(&q.mu)
	go q.work()
	return q
}

// Enqueue appends task without blocking. It reports false when the queue is
// already closed and the task was dropped.
func (q *Queue) Enqueue(name string, task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.log.Warn("persist: task dropped on closed queue", zap.String("task", name))
		return false
	}
	q.jobs = append(q.jobs, job{name: name, run: task})
	q.cond.Signal()
	return true
}

// Drain blocks until every task enqueued before the call has finished, or
// ctx is done.
func (q *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	q.mu.Lock()
	if q.closed && len(q.jobs) == 0 {
		q.mu.Unlock()
		<-q.stopped
		return nil
	}
	q.jobs = append(q.jobs, job{name: "drain", done: done})
	q.cond.Signal()
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending tasks and stops the worker. If ctx ends first, the
// task in flight is cancelled and the remaining ones are discarded.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return nil
	}
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()

	select {
	case <-q.stopped:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		dropped := 0
		for _, j := range q.jobs {
			if j.done != nil {
				close(j.done)
				continue
			}
			dropped++
		}
		q.jobs = nil
		q.mu.Unlock()
		q.cancel()
		if dropped > 0 {
			q.log.Warn("persist: queue closed with pending tasks", zap.Int("dropped", dropped))
		}
		<-q.stopped
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.jobs) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		j := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		q.run(j)
	}
}

func (q *Queue) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("persist: task panicked", zap.String("task", j.name), zap.Any("panic", r))
		}
		if j.done != nil {
			close(j.done)
		}
	}()
	if j.run == nil {
		return
	}
	if err := j.run(q.ctx); err != nil {
		q.log.Error("persist: task failed", zap.String("task", j.name), zap.Error(err))
	}
}
