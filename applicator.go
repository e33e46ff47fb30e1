package qdispatch

import "fmt"

/*
applyGate returns a fresh amplitude vector with g applied to qubit q.

Basis states pair up as (i0, i1) where i1 = i0 | 1<<q. Walking every index and
only acting when bit q is clear visits each unordered pair exactly once. The
input slice is never written, so a reader holding it sees the old state.
*/
func applyGate(amps []complex128, numQubits int, g Gate, q int) ([]complex128, error) {
	if q < 0 || q >= numQubits {
		return nil, fmt.Errorf("%w: qubit %d on a %d-qubit register", ErrIndexOutOfRange, q, numQubits)
	}

	if !g.IsUnitary() {
		return nil, ErrNonUnitaryGate
	}

	bit := 1 << q
	out := make([]complex128, len(amps))

	for i0 := range amps {
		if i0&bit != 0 {
			continue
		}

		i1 := i0 | bit
		a0, a1 := amps[i0], amps[i1]
		out[i0] = g[0][0]*a0 + g[0][1]*a1
		out[i1] = g[1][0]*a0 + g[1][1]*a1
	}

	return out, nil
}

/*
Apply replaces the register with g applied to qubit q. On error the register
is left untouched.
*/
func (sv *StateVector) Apply(g Gate, q int) error {
	next, err := applyGate(sv.amplitudes, sv.numQubits, g, q)
	if err != nil {
		return err
	}

	sv.amplitudes = next
	return nil
}
