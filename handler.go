package qdispatch

import (
	"context"
	"fmt"
	"math/rand/v2"
)

/*
Handler runs one task payload to a numeric output. Returning an error, or
panicking, fails only the task at hand.
*/
type Handler interface {
	Handle(ctx context.Context, payload []float64) ([]float64, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, payload []float64) ([]float64, error)

func (f HandlerFunc) Handle(ctx context.Context, payload []float64) ([]float64, error) {
	return f(ctx, payload)
}

/*
HandlerFactory builds the handler one worker uses for a task kind. Every worker
calls it once at startup, so whatever the handler holds is worker-local.
*/
type HandlerFactory func(workerID int) (Handler, error)

// Shared wraps a single handler as a factory; the handler must then be safe
// for concurrent use.
func Shared(h Handler) HandlerFactory {
	return func(int) (Handler, error) { return h, nil }
}

/*
SimulationHandler runs a circuit on a fresh engine per task and returns the
observed frequency of every basis state.

Without a template circuit the payload is the angle vector of DemoCircuit and
its length sets the register size. With a template the payload supplies the
template's parameters.
*/
type SimulationHandler struct {
	circuit   *Circuit
	shots     int
	maxQubits int
	rng       *rand.Rand
}

func NewSimulationHandler(circuit *Circuit, shots, maxQubits int, seed uint64) *SimulationHandler {
	return &SimulationHandler{
		circuit:   circuit,
		shots:     shots,
		maxQubits: maxQubits,
		rng:       rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
	}
}

func (h *SimulationHandler) Handle(ctx context.Context, payload []float64) ([]float64, error) {
	circuit := h.circuit
	if circuit == nil {
		if len(payload) == 0 {
			return nil, fmt.Errorf("%w: simulation payload carries no qubit angles", ErrInvalidQubitCount)
		}
		if len(payload) > h.maxQubits {
			return nil, fmt.Errorf("%w: %d qubits requested, limit %d", ErrCapacityExceeded, len(payload), h.maxQubits)
		}
		circuit = DemoCircuit(len(payload))
	}

	engine, err := NewEngine(circuit.Qubits, WithRand(h.rng))
	if err != nil {
		return nil, err
	}

	if err := engine.RunCircuit(circuit, payload); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hist, err := engine.Measure(h.shots)
	if err != nil {
		return nil, err
	}

	return hist.Frequencies(circuit.Qubits), nil
}

// InferenceHandler delegates to a network's forward pass.
type InferenceHandler struct {
	Net Forwarder
}

func (h *InferenceHandler) Handle(ctx context.Context, payload []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.Net.Forward(payload)
}

// OptimizationHandler minimizes starting from the payload.
type OptimizationHandler struct {
	Solver Solver
}

func (h *OptimizationHandler) Handle(ctx context.Context, payload []float64) ([]float64, error) {
	return h.Solver.Minimize(ctx, payload)
}

/*
defaultFactories wires the built-in handlers from cfg. A fixed cfg.Seed makes
every worker's network identical and gives each worker its own sampler stream;
seed 0 draws one network seed for the pool and random sampler seeds.
*/
func defaultFactories(cfg *Config) (map[TaskKind]HandlerFactory, error) {
	var circuit *Circuit
	if cfg.CircuitFile != "" {
		c, err := LoadCircuit(cfg.CircuitFile)
		if err != nil {
			return nil, err
		}
		circuit = c
	}

	netSeed := cfg.Seed
	if netSeed == 0 {
		netSeed = rand.Uint64()
	}

	return map[TaskKind]HandlerFactory{
		QuantumSimulation: func(workerID int) (Handler, error) {
			seed := rand.Uint64()
			if cfg.Seed != 0 {
				seed = cfg.Seed + uint64(workerID)
			}
			return NewSimulationHandler(circuit, cfg.Shots, cfg.SimulationQubits, seed), nil
		},
		NeuralNetworkInference: func(int) (Handler, error) {
			net, err := NewNetwork(cfg.NetworkLayers, netSeed)
			if err != nil {
				return nil, err
			}
			return &InferenceHandler{Net: net}, nil
		},
		Optimization: func(int) (Handler, error) {
			return &OptimizationHandler{
				Solver: NewGradientDescent(Sphere, cfg.SolverLearningRate, cfg.SolverIterations),
			}, nil
		},
	}, nil
}
