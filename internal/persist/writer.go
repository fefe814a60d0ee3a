package persist

import (
	"context"

	"go.uber.org/zap"

	"github.com/petasbytes/go-agent/internal/transcript"
)

// Target receives full transcript snapshots. Each Write fully overwrites
// whatever the target held before.
type Target interface {
	Write(ctx context.Context, msgs []transcript.Message) error
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, msgs []transcript.Message) error

func (f TargetFunc) Write(ctx context.Context, msgs []transcript.Message) error { return f(ctx, msgs) }

// Source provides the snapshot to write.
type Source interface {
	Messages() []transcript.Message
}

// Writer binds one queue to one target. Notify enqueues a write whose
// snapshot is taken when the write runs, not when it was enqueued, so a
// later write never carries an older transcript than an earlier one.
type Writer struct {
	name   string
	target Target
	src    Source
	q      *Queue
}

// NewWriter starts a dedicated queue for target.
func NewWriter(name string, target Target, src Source, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		name:   name,
		target: target,
		src:    src,
		q:      NewQueue(log.With(zap.String("target", name))),
	}
}

// Notify schedules one write. It never blocks.
func (w *Writer) Notify() {
	w.q.Enqueue("write "+w.name, func(ctx context.Context) error {
		return w.target.Write(ctx, w.src.Messages())
	})
}

// Flush waits for every write scheduled so far.
func (w *Writer) Flush(ctx context.Context) error {
	return w.q.Drain(ctx)
}

// Close flushes pending writes and stops the queue. Notify after Close is a no-op.
func (w *Writer) Close(ctx context.Context) error {
	return w.q.Close(ctx)
}
