package qdispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Worker pulls tasks from the pool's queue and runs them one at a time.
type Worker struct {
	id       int
	pool     *Pool
	handlers map[TaskKind]Handler
	logger   *log.Logger
}

func newWorker(p *Pool, id int) (*Worker, error) {
	w := &Worker{
		id:       id,
		pool:     p,
		handlers: make(map[TaskKind]Handler, len(p.factories)),
		logger:   p.logger.With("worker", id),
	}

	for kind, factory := range p.factories {
		h, err := factory(id)
		if err != nil {
			return nil, fmt.Errorf("%s handler: %w", kind, err)
		}
		w.handlers[kind] = h
	}

	return w, nil
}

/*
run blocks in Pop between tasks; it returns once the queue is closed and empty
or the pool context ends.
*/
func (w *Worker) run() {
	defer w.pool.wg.Done()

	for {
		// Pop hands out queued tasks even after cancellation.
		if w.pool.ctx.Err() != nil {
			w.logger.Debug("worker stopped", "err", w.pool.ctx.Err())
			return
		}

		task, err := w.pool.queue.Pop(w.pool.ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				w.logger.Debug("queue drained, worker exiting")
			} else {
				w.logger.Debug("worker stopped", "err", err)
			}
			return
		}

		w.dispatch(task)
	}
}

func (w *Worker) dispatch(t Task) {
	w.pool.inFlight.Add(1)
	defer w.pool.inFlight.Add(-1)
	w.pool.markDispatched(t.ID)

	ctx, span := startTaskSpan(w.pool.ctx, w.pool.tracer, w.pool.id, w.id, t)

	start := time.Now()
	r := w.processTask(ctx, t)
	r.WorkerID = w.id
	r.Duration = time.Since(start)

	endTaskSpan(span, r)
	w.pool.metrics.recordJobExecution(r.Duration, r.Success)
	w.pool.complete(r)

	if r.Success {
		w.logger.Debug("task completed", "task", t.ID, "kind", t.Kind, "attempts", r.Attempts)
	} else {
		w.logger.Warn("task failed", "task", t.ID, "kind", t.Kind, "attempts", r.Attempts, "err", r.Err)
	}
}

/*
processTask runs t's handler under the retry policy and the kind's breaker.
Whatever goes wrong ends up on the Result; nothing escapes the worker.
*/
func (w *Worker) processTask(ctx context.Context, t Task) Result {
	h, ok := w.handlers[t.Kind]
	if !ok {
		return failed(t.ID, 0, fmt.Errorf("%w: %s", ErrNoHandler, t.Kind))
	}

	breaker := w.pool.breakers[t.Kind]
	policy := w.pool.retry

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := policy.Strategy.NextDelay(attempt - 1)
			w.logger.Debug("retrying task", "task", t.ID, "attempt", attempt, "delay", delay)
			w.pool.metrics.recordRetry()

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return failed(t.ID, attempts, errors.Join(lastErr, ctx.Err()))
			}
		}

		if breaker != nil && !breaker.Allow() {
			if lastErr == nil {
				lastErr = fmt.Errorf("%w: %s", ErrCircuitOpen, t.Kind)
			}
			break
		}

		attempts = attempt
		out, err := w.invoke(ctx, h, t)
		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return Result{TaskID: t.ID, Output: out, Success: true, Attempts: attempts}
		}

		if breaker != nil {
			breaker.RecordFailure()
		}
		lastErr = err

		if !policy.retryable(err) || ctx.Err() != nil {
			break
		}
	}

	return failed(t.ID, attempts, lastErr)
}

// invoke runs one attempt with its own timeout and turns a panic into an error.
func (w *Worker) invoke(ctx context.Context, h Handler, t Task) (out []float64, err error) {
	ctx, cancel := context.WithTimeout(ctx, w.pool.cfg.taskTimeout())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, newPanicError(r)
		}
	}()

	out, err = h.Handle(ctx, t.clone().Payload)
	if err == nil && out == nil {
		out = []float64{}
	}
	return out, err
}

func failed(id string, attempts int, cause error) Result {
	return Result{
		TaskID:   id,
		Output:   []float64{},
		Success:  false,
		Err:      fmt.Errorf("%w: task %s: %w", ErrHandlerFailure, id, cause),
		Attempts: attempts,
	}
}
