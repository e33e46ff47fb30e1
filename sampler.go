package qdispatch

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Histogram maps a measured bitstring to the number of shots that produced it.
type Histogram map[string]int

// Total is the number of shots recorded.
func (h Histogram) Total() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

/*
Frequencies returns the observed frequency of every basis state of an n-qubit
register, indexed by basis state. Unsampled states read 0.
*/
func (h Histogram) Frequencies(n int) []float64 {
	out := make([]float64, 1<<n)
	total := h.Total()
	if total == 0 {
		return out
	}

	for i := range out {
		out[i] = float64(h[Bitstring(i, n)]) / float64(total)
	}
	return out
}

/*
Sampler draws measurement shots from a state vector's probability
distribution using inverse-CDF sampling over a caller-owned random source.
A Sampler is not safe for concurrent use; the Engine serializes access.
*/
type Sampler struct {
	rng *rand.Rand
}

// NewSampler seeds a PCG source so the same seed replays the same shots.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewSamplerWithRand samples from an existing source.
func NewSamplerWithRand(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

/*
Sample measures sv shots times.

The probabilities are used as-is. A state whose probabilities do not sum to
1.0 within NormTolerance is rejected with ErrUnnormalizedState.
*/
func (s *Sampler) Sample(sv *StateVector, shots int) (Histogram, error) {
	if shots < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidShots, shots)
	}

	probs := sv.Probabilities()

	var sum float64
	last := 0
	for i, p := range probs {
		sum += p
		if p > 0 {
			last = i
		}
	}

	if math.Abs(sum-1) > NormTolerance {
		return nil, fmt.Errorf("%w: probability sum %.9f", ErrUnnormalizedState, sum)
	}

	hist := make(Histogram)
	for range shots {
		idx := s.pick(probs, last)
		hist[Bitstring(idx, sv.numQubits)]++
	}

	return hist, nil
}

/*
pick returns the first index whose running sum reaches the draw. Indices with
zero probability are never chosen, even for a draw of exactly 0 where a plain
cumulative walk would stop on them.
*/
func (s *Sampler) pick(probs []float64, last int) int {
	r := s.rng.Float64()

	var cumulative float64
	for i, p := range probs {
		if p == 0 {
			continue
		}
		cumulative += p
		if cumulative >= r {
			return i
		}
	}

	// Rounding can leave the final running sum just under r.
	return last
}
