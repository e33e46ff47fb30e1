package qdispatch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxQubits bounds the register size; the vector holds 1<<n amplitudes.
	MaxQubits = 24

	// NormTolerance is how far the probability sum may drift from 1.0.
	NormTolerance = 1e-6
)

/*
StateVector holds the 2^n complex amplitudes of an n-qubit register.

Basis index i encodes qubit q in bit q, so qubit 0 is the least significant
bit. Bitstrings render the most significant qubit first.
*/
type StateVector struct {
	amplitudes []complex128
	numQubits  int
}

/*
NewStateVector returns the register |0...0⟩.

Returns ErrInvalidQubitCount for n < 1 and ErrCapacityExceeded above MaxQubits.
*/
func NewStateVector(n int) (*StateVector, error) {
	if err := checkQubitCount(n); err != nil {
		return nil, err
	}

	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &StateVector{amplitudes: amps, numQubits: n}, nil
}

/*
StateVectorFrom builds a register from explicit amplitudes. The length must be
a power of two; normalization is not enforced here, Measure checks it.
*/
func StateVectorFrom(amplitudes []complex128) (*StateVector, error) {
	n := 0
	for 1<<n < len(amplitudes) {
		n++
	}

	if len(amplitudes) == 0 || 1<<n != len(amplitudes) {
		return nil, fmt.Errorf("%w: %d amplitudes is not a power of two", ErrInvalidQubitCount, len(amplitudes))
	}

	if err := checkQubitCount(n); err != nil {
		return nil, err
	}

	amps := make([]complex128, len(amplitudes))
	copy(amps, amplitudes)
	return &StateVector{amplitudes: amps, numQubits: n}, nil
}

func checkQubitCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidQubitCount, n)
	}
	if n > MaxQubits {
		return fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, n, MaxQubits)
	}
	return nil
}

func (sv *StateVector) NumQubits() int { return sv.numQubits }

// Len is the number of basis states.
func (sv *StateVector) Len() int { return len(sv.amplitudes) }

// Amplitudes returns a copy of the amplitude vector.
func (sv *StateVector) Amplitudes() []complex128 {
	out := make([]complex128, len(sv.amplitudes))
	copy(out, sv.amplitudes)
	return out
}

// Amplitude returns the amplitude of basis state i.
func (sv *StateVector) Amplitude(i int) complex128 {
	return sv.amplitudes[i]
}

// Probabilities returns |a_i|^2 for every basis state, without renormalizing.
func (sv *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(sv.amplitudes))
	for i, a := range sv.amplitudes {
		probs[i] = real(a)*real(a) + imag(a)*imag(a)
	}
	return probs
}

// Norm is the sum of the squared magnitudes.
func (sv *StateVector) Norm() float64 {
	var sum float64
	for _, p := range sv.Probabilities() {
		sum += p
	}
	return sum
}

func (sv *StateVector) IsNormalized() bool {
	return math.Abs(sv.Norm()-1) <= NormTolerance
}

func (sv *StateVector) Clone() *StateVector {
	return &StateVector{amplitudes: sv.Amplitudes(), numQubits: sv.numQubits}
}

/*
Equal reports whether both registers have the same size and every amplitude
pair differs by at most tol in both components.
*/
func (sv *StateVector) Equal(other *StateVector, tol float64) bool {
	if other == nil || sv.numQubits != other.numQubits {
		return false
	}

	for i, a := range sv.amplitudes {
		b := other.amplitudes[i]
		if math.Abs(real(a)-real(b)) > tol || math.Abs(imag(a)-imag(b)) > tol {
			return false
		}
	}
	return true
}

// Bitstring renders basis index i as n bits, most significant first.
func Bitstring(i, n int) string {
	s := strconv.FormatUint(uint64(i), 2)
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
