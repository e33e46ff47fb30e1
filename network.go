package qdispatch

import (
	"fmt"
	"math"
	"math/rand/v2"
)

/*
Forwarder maps an input vector to an output vector. The inference handler
depends on nothing else about the network.
*/
type Forwarder interface {
	Forward(input []float64) ([]float64, error)
}

// Activation is applied elementwise after each layer's affine map.
type Activation int

const (
	ReLU Activation = iota
	Sigmoid
	Tanh
)

func (a Activation) apply(x float64) float64 {
	switch a {
	case ReLU:
		return math.Max(0, x)
	case Sigmoid:
		return 1 / (1 + math.Exp(-x))
	case Tanh:
		return math.Tanh(x)
	}
	return x
}

type layer struct {
	weights    [][]float64 // out x in
	biases     []float64
	activation Activation
}

/*
Network is a dense feed-forward network with He-initialized weights, ReLU on
hidden layers and a sigmoid output. It only runs inference; weights are fixed
after construction, so Forward is safe for concurrent use.
*/
type Network struct {
	sizes  []int
	layers []layer
}

/*
NewNetwork builds a network for the given layer sizes (input first). At least
two sizes are needed and every size must be positive.
*/
func NewNetwork(sizes []int, seed uint64) (*Network, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: network needs at least 2 layer sizes, got %d", ErrDimensionMismatch, len(sizes))
	}

	for _, s := range sizes {
		if s < 1 {
			return nil, fmt.Errorf("%w: layer size %d", ErrDimensionMismatch, s)
		}
	}

	rng := rand.New(rand.NewPCG(seed, seed+1))
	n := &Network{sizes: append([]int(nil), sizes...)}

	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		std := math.Sqrt(2 / float64(in))

		l := layer{
			weights:    make([][]float64, out),
			biases:     make([]float64, out),
			activation: ReLU,
		}
		if i == len(sizes)-2 {
			l.activation = Sigmoid
		}

		for r := range l.weights {
			l.weights[r] = make([]float64, in)
			for c := range l.weights[r] {
				l.weights[r][c] = rng.NormFloat64() * std
			}
		}

		n.layers = append(n.layers, l)
	}

	return n, nil
}

func (n *Network) InputSize() int  { return n.sizes[0] }
func (n *Network) OutputSize() int { return n.sizes[len(n.sizes)-1] }

// Forward runs input through every layer.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("%w: input has %d values, network expects %d", ErrDimensionMismatch, len(input), n.InputSize())
	}

	x := input
	for _, l := range n.layers {
		y := make([]float64, len(l.weights))
		for r, row := range l.weights {
			sum := l.biases[r]
			for c, w := range row {
				sum += w * x[c]
			}
			y[r] = l.activation.apply(sum)
		}
		x = y
	}

	return x, nil
}
