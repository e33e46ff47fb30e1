package qdispatch

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGradientDescent(t *testing.T) {
	Convey("Given gradient descent on the sphere", t, func() {
		gd := NewGradientDescent(Sphere, 0.1, 500)

		Convey("It converges to the origin", func() {
			x, err := gd.Minimize(context.Background(), []float64{3, -2, 0.5})
			So(err, ShouldBeNil)
			So(x, ShouldHaveLength, 3)
			So(Sphere(x), ShouldBeLessThan, 1e-8)
		})

		Convey("It does not modify the starting point", func() {
			x0 := []float64{1, 1}
			_, _ = gd.Minimize(context.Background(), x0)
			So(x0, ShouldResemble, []float64{1, 1})
		})

		Convey("An empty starting point is rejected", func() {
			_, err := gd.Minimize(context.Background(), nil)
			So(errors.Is(err, ErrDimensionMismatch), ShouldBeTrue)
		})

		Convey("A cancelled context stops it", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := gd.Minimize(ctx, []float64{1})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given gradient descent on Rosenbrock", t, func() {
		gd := NewGradientDescent(Rosenbrock, 0.001, 20000)

		x, err := gd.Minimize(context.Background(), []float64{0, 0})
		So(err, ShouldBeNil)

		Convey("It makes progress toward (1, 1)", func() {
			So(Rosenbrock(x), ShouldBeLessThan, Rosenbrock([]float64{0, 0}))
			So(Rosenbrock([]float64{1, 1}), ShouldEqual, 0)
		})
	})

	Convey("Given coordinates far from the origin", t, func() {
		gd := NewGradientDescent(Sphere, 0.1, 1)
		grad := make([]float64, 2)
		gd.gradient([]float64{4e12, -3e9}, grad)

		Convey("The gradient does not vanish to rounding", func() {
			So(grad[0], ShouldAlmostEqual, 8e12, 1e6)
			So(grad[1], ShouldAlmostEqual, -6e9, 1e3)
		})
	})

	Convey("Given a step size that is far too large", t, func() {
		gd := NewGradientDescent(Sphere, 1e6, 1000)

		x, err := gd.Minimize(context.Background(), []float64{1})
		So(x, ShouldBeNil)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "diverged")
	})
}
