package qdispatch

import (
	"context"
	"fmt"
	"math"
)

/*
Solver minimizes some objective starting from x0. The optimization handler
treats it as opaque.
*/
type Solver interface {
	Minimize(ctx context.Context, x0 []float64) ([]float64, error)
}

// Objective is a scalar function of a vector.
type Objective func(x []float64) float64

// Rosenbrock is the generalized Rosenbrock function, minimum 0 at (1, ..., 1).
func Rosenbrock(x []float64) float64 {
	var sum float64
	for i := 0; i < len(x)-1; i++ {
		a := 1 - x[i]
		b := x[i+1] - x[i]*x[i]
		sum += a*a + 100*b*b
	}
	if len(x) == 1 {
		a := 1 - x[0]
		sum = a * a
	}
	return sum
}

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

/*
GradientDescent follows a central-difference gradient with a fixed step. It
stops when the gradient norm drops under Tolerance, after MaxIterations, or
when ctx ends (returning the best point so far with ctx's error).
*/
type GradientDescent struct {
	Objective     Objective
	LearningRate  float64
	MaxIterations int
	Tolerance     float64
}

func NewGradientDescent(obj Objective, learningRate float64, maxIterations int) *GradientDescent {
	return &GradientDescent{
		Objective:     obj,
		LearningRate:  learningRate,
		MaxIterations: maxIterations,
		Tolerance:     1e-8,
	}
}

func (gd *GradientDescent) Minimize(ctx context.Context, x0 []float64) ([]float64, error) {
	if len(x0) == 0 {
		return nil, fmt.Errorf("%w: empty starting point", ErrDimensionMismatch)
	}

	x := append([]float64(nil), x0...)
	grad := make([]float64, len(x))

	for iter := 0; iter < gd.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return x, err
		}

		if f := gd.Objective(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("diverged at iteration %d: objective %v", iter, f)
		}

		gd.gradient(x, grad)

		var norm float64
		for _, g := range grad {
			norm += g * g
		}
		if math.Sqrt(norm) < gd.Tolerance {
			break
		}

		for i := range x {
			x[i] -= gd.LearningRate * grad[i]
		}

		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("diverged at iteration %d", iter)
			}
		}
	}

	return x, nil
}

// gradient scales the difference step with |x_i| so large coordinates never
// collapse (x+h)² and (x-h)² onto the same float.
func (gd *GradientDescent) gradient(x, out []float64) {
	for i := range x {
		orig := x[i]
		h := 1e-6 * math.Max(1, math.Abs(orig))
		x[i] = orig + h
		up := gd.Objective(x)
		x[i] = orig - h
		down := gd.Objective(x)
		x[i] = orig
		out[i] = (up - down) / (2 * h)
	}
}
