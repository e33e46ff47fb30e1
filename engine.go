package qdispatch

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/theapemachine/errnie"
)

/*
EngineOption configures an Engine at construction.
*/
type EngineOption func(*Engine)

// WithSeed makes measurement reproducible.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.sampler = NewSampler(seed)
	}
}

// WithRand samples from an existing random source.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *Engine) {
		e.sampler = NewSamplerWithRand(rng)
	}
}

/*
Engine owns one state vector and mutates it only through gate application.

Every successful gate appends "Gate on qubit k" to an append-only history.
Readers never observe a half-applied gate: the new amplitude slice is built
off to the side and swapped in under the write lock.
*/
type Engine struct {
	mu      sync.RWMutex
	state   *StateVector
	history []string
	sampler *Sampler
}

/*
NewEngine creates an n-qubit engine in the |0...0⟩ state.

Returns ErrInvalidQubitCount for n < 1 and ErrCapacityExceeded for
n > MaxQubits. Without WithSeed or WithRand the sampler is randomly seeded.
*/
func NewEngine(n int, opts ...EngineOption) (*Engine, error) {
	errnie.Info("NewEngine - qubits %d", n)

	state, err := NewStateVector(n)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		state:   state,
		history: make([]string, 0),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.sampler == nil {
		e.sampler = NewSampler(rand.Uint64())
	}

	return e, nil
}

func (e *Engine) NumQubits() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.numQubits
}

/*
ApplyGate applies g to qubit q. A qubit outside [0, n) fails with
ErrIndexOutOfRange and a non-unitary matrix with ErrNonUnitaryGate; in both
cases neither the state nor the history changes.
*/
func (e *Engine) ApplyGate(g Gate, q int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.Apply(g, q); err != nil {
		return err
	}

	e.history = append(e.history, fmt.Sprintf("Gate on qubit %d", q))
	return nil
}

/*
Measure samples the current state shots times without collapsing it.
*/
func (e *Engine) Measure(shots int) (Histogram, error) {
	// Sampling advances the random source, so it needs the write lock.
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sampler.Sample(e.state, shots)
}

// History returns a copy of the applied-gate log, oldest first.
func (e *Engine) History() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, len(e.history))
	copy(out, e.history)
	return out
}

// State returns a snapshot of the register.
func (e *Engine) State() *StateVector {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

/*
Reset returns the register to |0...0⟩ and starts a fresh history. The random
source keeps its position.
*/
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	errnie.Info("Engine.Reset - qubits %d, gates dropped %d", e.state.numQubits, len(e.history))

	state, _ := NewStateVector(e.state.numQubits)
	e.state = state
	e.history = make([]string, 0)
}

/*
RunCircuit applies every op of c in order, resolving parameterized angles from
params. It stops at the first failing op; ops applied before it stay applied.
*/
func (e *Engine) RunCircuit(c *Circuit, params []float64) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Qubits != e.NumQubits() {
		return fmt.Errorf("%w: circuit %q wants %d qubits, engine has %d",
			ErrInvalidCircuit, c.Name, c.Qubits, e.NumQubits())
	}

	for i, op := range c.Ops {
		g, err := op.Resolve(params)
		if err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}

		if err := e.ApplyGate(g, op.Qubit); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}

	return nil
}
