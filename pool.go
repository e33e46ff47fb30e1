package qdispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PoolOption configures a Pool before its workers start.
type PoolOption func(*Pool)

// WithHandler makes every worker share h for kind.
func WithHandler(kind TaskKind, h Handler) PoolOption {
	return WithHandlerFactory(kind, Shared(h))
}

// WithHandlerFactory gives every worker its own handler for kind.
func WithHandlerFactory(kind TaskKind, f HandlerFactory) PoolOption {
	return func(p *Pool) {
		p.factories[kind] = f
	}
}

func WithLogger(logger *log.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

func WithTracerProvider(tp trace.TracerProvider) PoolOption {
	return func(p *Pool) {
		p.tracer = tp.Tracer(tracerName)
	}
}

// WithRetryPolicy overrides the policy derived from Config.
func WithRetryPolicy(rp *RetryPolicy) PoolOption {
	return func(p *Pool) {
		p.retry = rp
	}
}

/*
Pool is a fixed set of workers consuming one shared TaskQueue and publishing
one Result per dispatched task into a ResultSink.

Tasks move Submitted → Dispatched → Completed, or end Dropped when the pool
stops before a worker picks them up, or Cancelled when the caller removes them
first. Dispatch is FIFO across the whole pool; completion order is not.
*/
type Pool struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config

	queue   *TaskQueue
	sink    *ResultSink
	metrics *Metrics
	logger  *log.Logger
	tracer  trace.Tracer
	retry   *RetryPolicy

	factories map[TaskKind]HandlerFactory
	breakers  map[TaskKind]*CircuitBreaker

	statusMu sync.Mutex
	status   map[string]TaskStatus

	workers  []*Worker
	inFlight atomic.Int64
	wg       sync.WaitGroup
	stopOnce sync.Once
}

/*
NewPool validates cfg (nil means NewConfig()), builds every worker's handlers
and starts the workers. Built-in handlers cover each kind not set through
WithHandler or WithHandlerFactory.
*/
func NewPool(ctx context.Context, cfg *Config, opts ...PoolOption) (*Pool, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		id:        uuid.NewString(),
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		queue:     NewTaskQueue(),
		sink:      NewResultSink(),
		metrics:   NewMetrics(),
		retry:     newRetryPolicy(cfg),
		factories: make(map[TaskKind]HandlerFactory),
		breakers:  make(map[TaskKind]*CircuitBreaker),
		status:    make(map[string]TaskStatus),
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = NewLogger(nil, cfg.LogLevel)
	}
	p.logger = p.logger.With("pool", p.id)

	defaults, err := defaultFactories(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	for kind, f := range defaults {
		if _, ok := p.factories[kind]; !ok {
			p.factories[kind] = f
		}
	}

	if cfg.BreakerMaxFailures > 0 {
		for kind := range p.factories {
			p.breakers[kind] = NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerResetTimeout, cfg.BreakerHalfOpenMax)
		}
	}

	for i := 0; i < cfg.Workers; i++ {
		w, err := newWorker(p, i)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}
		p.workers = append(p.workers, w)
	}

	p.sink.onDrain = p.forget

	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go w.run()
	}

	go p.watch()

	p.logger.Info("pool started", "workers", len(p.workers))
	return p, nil
}

func (p *Pool) ID() string { return p.id }

/*
Submit enqueues t and returns at once. It fails with ErrQueueClosed after
Close, Shutdown or Stop, with ErrInvalidTask for an empty id, and with
ErrDuplicateTask while the id is queued, running, or has an undrained result.
*/
func (p *Pool) Submit(t Task) error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTask)
	}

	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	switch p.status[t.ID] {
	case TaskSubmitted, TaskDispatched:
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	case TaskCompleted:
		if p.sink.Has(t.ID) {
			return fmt.Errorf("%w: %s has an undrained result", ErrDuplicateTask, t.ID)
		}
	}

	if err := p.queue.Push(t.clone()); err != nil {
		return err
	}

	p.status[t.ID] = TaskSubmitted
	p.metrics.recordSubmit()
	return nil
}

/*
Cancel removes a task that no worker has picked up yet. It reports false when
the task is unknown, already dispatched, or finished.
*/
func (p *Pool) Cancel(id string) bool {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	if p.status[id] != TaskSubmitted {
		return false
	}

	if _, ok := p.queue.Remove(id); !ok {
		return false
	}

	p.status[id] = TaskCancelled
	p.metrics.recordCancelled()
	p.logger.Debug("task cancelled", "task", id)
	return true
}

// Status reports where id is. Ids are forgotten, reading TaskUnknown, once
// their results are drained; cancelled and dropped ids go on the next drain.
func (p *Pool) Status(id string) TaskStatus {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	return p.status[id]
}

// Await blocks until the result for id is available.
func (p *Pool) Await(ctx context.Context, id string) (Result, error) {
	return p.sink.Await(ctx, id)
}

func (p *Pool) Results() *ResultSink { return p.sink }

func (p *Pool) Metrics() *Metrics { return p.metrics }

// Breaker returns the circuit breaker guarding kind, or nil when disabled.
func (p *Pool) Breaker(kind TaskKind) *CircuitBreaker { return p.breakers[kind] }

func (p *Pool) Stats() Stats {
	s := p.metrics.snapshot()
	s.Workers = len(p.workers)
	s.QueueDepth = p.queue.Len()
	s.InFlight = int(p.inFlight.Load())
	return s
}

/*
Close stops intake, lets the workers drain every queued task, waits for them
and releases result waiters. It is safe to call more than once.
*/
func (p *Pool) Close() error {
	p.queue.Close()
	p.wg.Wait()
	p.finish()
	return nil
}

/*
Shutdown is Close bounded by ctx. When ctx ends first the pool context is
cancelled, still-queued tasks are dropped, in-flight handlers see their
context cancelled, and Shutdown returns ctx's error once they return.
*/
func (p *Pool) Shutdown(ctx context.Context) error {
	p.queue.Close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.finish()
		return nil
	case <-ctx.Done():
		p.drop(p.queue.CloseAndDrain())
		p.cancel()
		<-done
		p.finish()
		return ctx.Err()
	}
}

/*
Stop drops every task still queued, waits for in-flight tasks to finish and
returns the dropped tasks.
*/
func (p *Pool) Stop() []Task {
	dropped := p.queue.CloseAndDrain()
	p.drop(dropped)
	p.wg.Wait()
	p.finish()
	return dropped
}

/*
watch shuts intake when the parent context ends, so tasks left in the queue
end Dropped and later submits fail with ErrQueueClosed instead of waiting for
workers that are gone. After a normal shutdown it finds nothing to do.
*/
func (p *Pool) watch() {
	<-p.ctx.Done()
	p.drop(p.queue.CloseAndDrain())
	p.wg.Wait()
	p.finish()
}

func (p *Pool) finish() {
	p.stopOnce.Do(func() {
		// Workers also exit when the parent context ends; whatever they left
		// behind is dropped.
		p.drop(p.queue.CloseAndDrain())
		p.cancel()
		p.sink.Close()
		p.logger.Info("pool stopped", "metrics", p.metrics.ExportMetrics())
	})
}

func (p *Pool) drop(tasks []Task) {
	if len(tasks) == 0 {
		return
	}

	p.statusMu.Lock()
	for _, t := range tasks {
		p.status[t.ID] = TaskDropped
	}
	p.statusMu.Unlock()

	p.metrics.recordDropped(len(tasks))
	p.logger.Warn("tasks dropped before dispatch", "count", len(tasks))
}

/*
forget prunes status entries once their results are drained, along with every
cancelled or dropped id. A drained id that was resubmitted in the meantime
keeps its entry.
*/
func (p *Pool) forget(drained []Result) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	for _, r := range drained {
		if p.status[r.TaskID] == TaskCompleted && !p.sink.Has(r.TaskID) {
			delete(p.status, r.TaskID)
		}
	}

	for id, s := range p.status {
		if s == TaskCancelled || s == TaskDropped {
			delete(p.status, id)
		}
	}
}

func (p *Pool) markDispatched(id string) {
	p.statusMu.Lock()
	p.status[id] = TaskDispatched
	p.statusMu.Unlock()
}

// complete publishes r under the status lock so a resubmission of the same id
// can never race the store.
func (p *Pool) complete(r Result) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	p.status[r.TaskID] = TaskCompleted
	if err := p.sink.Store(r); err != nil {
		p.logger.Error("result not stored", "task", r.TaskID, "err", err)
	}
}
