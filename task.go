package qdispatch

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind selects the handler a worker runs for a task.
type TaskKind int

const (
	QuantumSimulation TaskKind = iota
	NeuralNetworkInference
	Optimization
)

func (k TaskKind) String() string {
	switch k {
	case QuantumSimulation:
		return "quantum_simulation"
	case NeuralNetworkInference:
		return "neural_network_inference"
	case Optimization:
		return "optimization"
	}
	return "unknown"
}

// Task is a unit of work. It is copied on submit and never mutated after.
type Task struct {
	ID      string
	Payload []float64
	Kind    TaskKind
}

// NewTask builds a task with a generated id.
func NewTask(kind TaskKind, payload []float64) Task {
	return Task{ID: uuid.NewString(), Payload: payload, Kind: kind}
}

func (t Task) clone() Task {
	payload := make([]float64, len(t.Payload))
	copy(payload, t.Payload)
	t.Payload = payload
	return t
}

/*
Result is the single outcome of a dispatched task. On failure Success is false,
Output is empty, and Err wraps ErrHandlerFailure with the cause.
*/
type Result struct {
	TaskID   string
	Output   []float64
	Success  bool
	Err      error
	Attempts int
	WorkerID int
	Duration time.Duration
}

// TaskStatus tracks a task through the pool.
type TaskStatus int

const (
	TaskUnknown TaskStatus = iota
	TaskSubmitted
	TaskDispatched
	TaskCompleted
	TaskDropped
	TaskCancelled
)

func (s TaskStatus) String() string {
	switch s {
	case TaskSubmitted:
		return "submitted"
	case TaskDispatched:
		return "dispatched"
	case TaskCompleted:
		return "completed"
	case TaskDropped:
		return "dropped"
	case TaskCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskDropped || s == TaskCancelled
}
