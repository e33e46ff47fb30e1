package qdispatch

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// unitaryTolerance bounds |G†G - I| entrywise.
const unitaryTolerance = 1e-9

/*
Gate is a single-qubit unitary as a row-major 2x2 complex matrix.
*/
type Gate [2][2]complex128

func Identity() Gate { return Gate{{1, 0}, {0, 1}} }
func PauliX() Gate   { return Gate{{0, 1}, {1, 0}} }
func PauliY() Gate   { return Gate{{0, -1i}, {1i, 0}} }
func PauliZ() Gate   { return Gate{{1, 0}, {0, -1}} }
func PhaseS() Gate   { return Gate{{1, 0}, {0, 1i}} }

func PhaseT() Gate {
	return Gate{{1, 0}, {0, cmplx.Exp(complex(0, math.Pi/4))}}
}

func Hadamard() Gate {
	h := complex(1/math.Sqrt2, 0)
	return Gate{{h, h}, {h, -h}}
}

func RX(theta float64) Gate {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return Gate{{c, s}, {s, c}}
}

func RY(theta float64) Gate {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return Gate{{c, -s}, {s, c}}
}

func RZ(theta float64) Gate {
	return Gate{
		{cmplx.Exp(complex(0, -theta/2)), 0},
		{0, cmplx.Exp(complex(0, theta/2))},
	}
}

/*
GateByName resolves the gate names accepted in circuit files. Rotation gates
take theta; the fixed gates ignore it.
*/
func GateByName(name string, theta float64) (Gate, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "I", "ID":
		return Identity(), nil
	case "X":
		return PauliX(), nil
	case "Y":
		return PauliY(), nil
	case "Z":
		return PauliZ(), nil
	case "H":
		return Hadamard(), nil
	case "S":
		return PhaseS(), nil
	case "T":
		return PhaseT(), nil
	case "RX":
		return RX(theta), nil
	case "RY":
		return RY(theta), nil
	case "RZ":
		return RZ(theta), nil
	}
	return Gate{}, fmt.Errorf("%w: unknown gate %q", ErrInvalidCircuit, name)
}

// Dagger returns the conjugate transpose.
func (g Gate) Dagger() Gate {
	return Gate{
		{cmplx.Conj(g[0][0]), cmplx.Conj(g[1][0])},
		{cmplx.Conj(g[0][1]), cmplx.Conj(g[1][1])},
	}
}

// Mul returns the matrix product g·h.
func (g Gate) Mul(h Gate) Gate {
	var out Gate
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			out[r][c] = g[r][0]*h[0][c] + g[r][1]*h[1][c]
		}
	}
	return out
}

// IsUnitary checks G†G against the identity.
func (g Gate) IsUnitary() bool {
	p := g.Dagger().Mul(g)
	id := Identity()
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			if cmplx.Abs(p[r][c]-id[r][c]) > unitaryTolerance {
				return false
			}
		}
	}
	return true
}
