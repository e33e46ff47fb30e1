package qdispatch

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/*
Op is one gate application in a circuit. When Param is set the rotation
angle comes from the caller's parameter vector instead of Theta.
*/
type Op struct {
	Gate  string  `yaml:"gate"`
	Qubit int     `yaml:"qubit"`
	Theta float64 `yaml:"theta,omitempty"`
	Param *int    `yaml:"param,omitempty"`
}

// Resolve turns the op into a concrete gate for the given parameters.
func (op Op) Resolve(params []float64) (Gate, error) {
	theta := op.Theta
	if op.Param != nil {
		if *op.Param < 0 || *op.Param >= len(params) {
			return Gate{}, fmt.Errorf("%w: param %d not supplied (%d given)", ErrInvalidCircuit, *op.Param, len(params))
		}
		theta = params[*op.Param]
	}
	return GateByName(op.Gate, theta)
}

/*
Circuit is an ordered list of single-qubit gate applications on a fixed
register size. Circuits are plain data and can be loaded from YAML:

	name: bell-ish
	qubits: 2
	ops:
	  - gate: H
	    qubit: 0
	  - gate: RY
	    qubit: 1
	    param: 0
*/
type Circuit struct {
	Name   string `yaml:"name"`
	Qubits int    `yaml:"qubits"`
	Ops    []Op   `yaml:"ops"`
}

// Validate checks the register size and every op's gate name and target.
func (c *Circuit) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil circuit", ErrInvalidCircuit)
	}

	if err := checkQubitCount(c.Qubits); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCircuit, err)
	}

	for i, op := range c.Ops {
		if op.Qubit < 0 || op.Qubit >= c.Qubits {
			return fmt.Errorf("%w: op %d targets qubit %d of %d", ErrInvalidCircuit, i, op.Qubit, c.Qubits)
		}
		if _, err := GateByName(op.Gate, 0); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}

	return nil
}

// NumParams is one past the highest parameter index referenced by an op.
func (c *Circuit) NumParams() int {
	n := 0
	for _, op := range c.Ops {
		if op.Param != nil && *op.Param+1 > n {
			n = *op.Param + 1
		}
	}
	return n
}

/*
ParseCircuit decodes and validates a YAML circuit definition. Unknown fields
are rejected so typos in gate definitions surface early.
*/
func ParseCircuit(data []byte) (*Circuit, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Circuit
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrInvalidCircuit, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCircuit reads a YAML circuit definition from disk.
func LoadCircuit(path string) (*Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read circuit file: %w", err)
	}
	return ParseCircuit(data)
}

/*
DemoCircuit is the fixed circuit the simulation handler runs: every qubit q
gets H, RZ(params[q]), H. Qubit q then reads 1 with probability
sin²(params[q]/2), independently of the others.
*/
func DemoCircuit(n int) *Circuit {
	c := &Circuit{Name: "demo", Qubits: n, Ops: make([]Op, 0, 3*n)}
	for q := 0; q < n; q++ {
		p := q
		c.Ops = append(c.Ops,
			Op{Gate: "H", Qubit: q},
			Op{Gate: "RZ", Qubit: q, Param: &p},
			Op{Gate: "H", Qubit: q},
		)
	}
	return c
}
