package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"medow/internal/logger"
	"medow/internal/metrics"
)

var ErrClosed = errors.New("worker: runner closed")

// Task is one unit of work, typically a fetch of a result window
type Task func(ctx context.Context) error

// Outcome is delivered exactly once per submitted task
type Outcome struct {
	Err        error
	Superseded bool
	Elapsed    time.Duration
}

type task struct {
	cancel     context.CancelFunc
	done       chan struct{}
	superseded atomic.Bool
}

// Runner executes tasks one at a time. Submitting a task cancels the one in
// flight, and the new task starts only after the old one has returned, so a
// superseded fetch can never overwrite a newer window.
type Runner struct {
	ctx       context.Context
	cancelAll context.CancelFunc

	mu      sync.Mutex
	current *task
	closed  bool
	wg      sync.WaitGroup

	log zerolog.Logger
}

func New(parent context.Context) *Runner {
	ctx, cancel := context.WithCancel(parent)
	return &Runner{
		ctx:       ctx,
		cancelAll: cancel,
		log:       logger.WithComponent("worker"),
	}
}

// Submit schedules fn and returns a channel receiving its outcome
func (r *Runner) Submit(fn Task) <-chan Outcome {
	out := make(chan Outcome, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		out <- Outcome{Err: ErrClosed}
		close(out)
		return out
	}

	prev := r.current
	if prev != nil {
		prev.superseded.Store(true)
		prev.cancel()
		r.log.Debug().Msg("superseding in-flight task")
	}

	ctx, cancel := context.WithCancel(r.ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	r.current = t
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer close(out)
		defer close(t.done)
		defer cancel()

		if prev != nil {
			<-prev.done
		}

		start := time.Now()
		var err error
		if err = ctx.Err(); err == nil {
			err = fn(ctx)
		}

		r.mu.Lock()
		if r.current == t {
			r.current = nil
		}
		// a task that returned without the cancellation error finished its
		// work, even if a newer task was submitted meanwhile
		superseded := t.superseded.Load() && errors.Is(err, context.Canceled)
		r.mu.Unlock()

		if superseded {
			metrics.IncSuperseded()
		}
		out <- Outcome{
			Err:        err,
			Superseded: superseded,
			Elapsed:    time.Since(start),
		}
	}()

	return out
}

// Busy reports whether a task is queued or running
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// Close cancels the task in flight and waits for it to return
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancelAll()
	r.wg.Wait()
}
