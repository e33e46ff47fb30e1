package qdispatch

import (
	"context"
	"sync"
)

/*
TaskQueue is an unbounded multi-producer, multi-consumer FIFO of pending tasks.

Push never blocks. Pop suspends on a wake channel until a task arrives, the
queue is closed and empty, or the context ends. Every push or close closes the
current wake channel, releasing all waiting consumers to race for the head
under the mutex, so dispatch order is global FIFO.
*/
type TaskQueue struct {
	mu     sync.Mutex
	items  []Task
	wake   chan struct{}
	closed bool
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		items: make([]Task, 0, 64),
		wake:  make(chan struct{}),
	}
}

// Push appends t, or fails with ErrQueueClosed once the queue is closed.
func (q *TaskQueue) Push(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, t)
	q.signal()
	return nil
}

/*
Pop removes and returns the oldest task. After Close it keeps returning queued
tasks until the queue is empty, then ErrQueueClosed.
*/
func (q *TaskQueue) Pop(ctx context.Context) (Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items[0] = Task{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, nil
		}

		if q.closed {
			q.mu.Unlock()
			return Task{}, ErrQueueClosed
		}

		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return Task{}, ctx.Err()
		}
	}
}

// Remove takes the first queued task with the given id out of the queue.
func (q *TaskQueue) Remove(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.items {
		if t.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return t, true
		}
	}
	return Task{}, false
}

// Close stops intake; queued tasks stay available to Pop.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.signal()
}

// CloseAndDrain stops intake and hands back everything still queued.
func (q *TaskQueue) CloseAndDrain() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := q.items
	q.items = make([]Task, 0)

	if !q.closed {
		q.closed = true
		q.signal()
	}
	return dropped
}

func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *TaskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// signal must be called with mu held.
func (q *TaskQueue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}
