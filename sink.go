package qdispatch

import (
	"context"
	"fmt"
	"sync"
)

/*
ResultSink collects results keyed by task id.

Callers either wait on one id (Await), check without blocking (Poll), wait for
a number of results (Collect), take everything so far (Drain), or stream
results as they land (Subscribe).
*/
type ResultSink struct {
	mu      sync.Mutex
	values  map[string]Result
	order   []string
	waiting map[string][]chan Result
	wake    chan struct{}
	closed  bool

	subscribers map[int]chan Result
	nextSub     int
	dropped     int64

	// onDrain runs after Drain releases the lock.
	onDrain func([]Result)
}

func NewResultSink() *ResultSink {
	return &ResultSink{
		values:      make(map[string]Result),
		order:       make([]string, 0, 64),
		waiting:     make(map[string][]chan Result),
		wake:        make(chan struct{}),
		subscribers: make(map[int]chan Result),
	}
}

/*
Store records r and releases anyone waiting on its task id. A second result
for an id still held by the sink is refused with ErrDuplicateResult.
*/
func (rs *ResultSink) Store(r Result) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.values[r.TaskID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateResult, r.TaskID)
	}

	rs.values[r.TaskID] = r
	rs.order = append(rs.order, r.TaskID)

	if channels, ok := rs.waiting[r.TaskID]; ok {
		for _, ch := range channels {
			ch <- r
			close(ch)
		}
		delete(rs.waiting, r.TaskID)
	}

	for _, ch := range rs.subscribers {
		select {
		case ch <- r:
		default:
			rs.dropped++
		}
	}

	close(rs.wake)
	rs.wake = make(chan struct{})
	return nil
}

/*
Await blocks until the result for id is stored or ctx ends. The result stays
in the sink; Drain removes it.
*/
func (rs *ResultSink) Await(ctx context.Context, id string) (Result, error) {
	rs.mu.Lock()
	if r, ok := rs.values[id]; ok {
		rs.mu.Unlock()
		return r, nil
	}

	if rs.closed {
		rs.mu.Unlock()
		return Result{}, ErrQueueClosed
	}

	ch := make(chan Result, 1)
	rs.waiting[id] = append(rs.waiting[id], ch)
	rs.mu.Unlock()

	select {
	case r, ok := <-ch:
		if !ok {
			return Result{}, ErrQueueClosed
		}
		return r, nil
	case <-ctx.Done():
		rs.removeWaiting(id, ch)
		return Result{}, ctx.Err()
	}
}

// Poll returns the result for id if it has been stored.
func (rs *ResultSink) Poll(id string) (Result, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.values[id]
	return r, ok
}

func (rs *ResultSink) Has(id string) bool {
	_, ok := rs.Poll(id)
	return ok
}

func (rs *ResultSink) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.values)
}

// Drain removes and returns every stored result in completion order.
func (rs *ResultSink) Drain() []Result {
	rs.mu.Lock()
	out := make([]Result, 0, len(rs.order))
	for _, id := range rs.order {
		out = append(out, rs.values[id])
	}

	rs.values = make(map[string]Result)
	rs.order = rs.order[:0]
	hook := rs.onDrain
	rs.mu.Unlock()

	if hook != nil {
		hook(out)
	}
	return out
}

/*
Collect waits until at least n results are held, then drains. If ctx ends
first, nothing is drained and ctx's error is returned.
*/
func (rs *ResultSink) Collect(ctx context.Context, n int) ([]Result, error) {
	for {
		rs.mu.Lock()
		if len(rs.values) >= n {
			rs.mu.Unlock()
			return rs.Drain(), nil
		}

		if rs.closed {
			rs.mu.Unlock()
			return nil, ErrQueueClosed
		}

		wake := rs.wake
		rs.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

/*
Subscribe returns a channel that receives every result stored from now on and
a function that unsubscribes and closes it. Sends never block the worker: a
full subscriber misses the result and the miss is counted in Dropped.
*/
func (rs *ResultSink) Subscribe(buffer int) (<-chan Result, func()) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	id := rs.nextSub
	rs.nextSub++

	ch := make(chan Result, buffer)
	rs.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			rs.mu.Lock()
			defer rs.mu.Unlock()
			if sub, ok := rs.subscribers[id]; ok {
				close(sub)
				delete(rs.subscribers, id)
			}
		})
	}
}

// Dropped counts results a full subscriber missed.
func (rs *ResultSink) Dropped() int64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.dropped
}

/*
Close releases every Await and Collect caller with ErrQueueClosed and closes
subscriber channels. Stored results remain readable through Poll and Drain.
*/
func (rs *ResultSink) Close() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.closed {
		return
	}
	rs.closed = true

	for id, channels := range rs.waiting {
		for _, ch := range channels {
			close(ch)
		}
		delete(rs.waiting, id)
	}

	for id, ch := range rs.subscribers {
		close(ch)
		delete(rs.subscribers, id)
	}

	close(rs.wake)
	rs.wake = make(chan struct{})
}

func (rs *ResultSink) removeWaiting(id string, ch chan Result) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	channels := rs.waiting[id]
	for i, waitingCh := range channels {
		if waitingCh == ch {
			rs.waiting[id] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(rs.waiting[id]) == 0 {
		delete(rs.waiting, id)
	}
}
