package qdispatch

import (
	"errors"
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewEngine(t *testing.T) {
	Convey("Given a request for an engine", t, func() {
		Convey("It should reject invalid qubit counts", func() {
			_, err := NewEngine(0)
			So(errors.Is(err, ErrInvalidQubitCount), ShouldBeTrue)

			_, err = NewEngine(MaxQubits + 1)
			So(errors.Is(err, ErrCapacityExceeded), ShouldBeTrue)
		})

		Convey("It should start in |0...0⟩ with an empty history", func() {
			e, err := NewEngine(2, WithSeed(1))
			So(err, ShouldBeNil)
			So(e.NumQubits(), ShouldEqual, 2)
			So(e.History(), ShouldBeEmpty)
			So(e.State().Amplitude(0), ShouldEqual, complex(1, 0))
		})
	})
}

func TestEngine(t *testing.T) {
	Convey("Given a seeded 2-qubit engine", t, func() {
		e, err := NewEngine(2, WithSeed(99))
		So(err, ShouldBeNil)

		Convey("When no gate is applied", func() {
			hist, err := e.Measure(1000)

			Convey("Every shot reads 00", func() {
				So(err, ShouldBeNil)
				So(hist, ShouldResemble, Histogram{"00": 1000})
			})
		})

		Convey("When X is applied twice to the same qubit", func() {
			So(e.ApplyGate(PauliX(), 1), ShouldBeNil)
			So(e.ApplyGate(PauliX(), 1), ShouldBeNil)

			Convey("The register is back in |00⟩", func() {
				hist, err := e.Measure(100)
				So(err, ShouldBeNil)
				So(hist, ShouldResemble, Histogram{"00": 100})
			})

			Convey("Both gates are in the history", func() {
				So(e.History(), ShouldResemble, []string{"Gate on qubit 1", "Gate on qubit 1"})
			})
		})

		Convey("When X targets qubit 1", func() {
			So(e.ApplyGate(PauliX(), 1), ShouldBeNil)

			Convey("The leftmost bit reads 1", func() {
				hist, err := e.Measure(10)
				So(err, ShouldBeNil)
				So(hist, ShouldResemble, Histogram{"10": 10})
			})
		})

		Convey("When a gate targets a missing qubit", func() {
			So(e.ApplyGate(Hadamard(), 0), ShouldBeNil)
			before := e.State()

			err := e.ApplyGate(PauliX(), 2)

			Convey("Nothing changes", func() {
				So(errors.Is(err, ErrIndexOutOfRange), ShouldBeTrue)
				So(e.State().Equal(before, 0), ShouldBeTrue)
				So(e.History(), ShouldHaveLength, 1)
			})
		})

		Convey("When the engine is reset", func() {
			So(e.ApplyGate(Hadamard(), 0), ShouldBeNil)
			e.Reset()

			Convey("It is back to the initial state", func() {
				So(e.History(), ShouldBeEmpty)
				So(e.State().Amplitude(0), ShouldEqual, complex(1, 0))
			})
		})

		Convey("When Measure is called repeatedly", func() {
			So(e.ApplyGate(Hadamard(), 0), ShouldBeNil)
			before := e.State()

			_, err := e.Measure(50)
			So(err, ShouldBeNil)

			Convey("The state does not collapse", func() {
				So(e.State().Equal(before, 0), ShouldBeTrue)
			})
		})
	})
}

func TestRunCircuit(t *testing.T) {
	Convey("Given the demo circuit on 2 qubits", t, func() {
		c := DemoCircuit(2)
		e, _ := NewEngine(2, WithSeed(3))

		Convey("Angles of π and 0 prepare |01⟩", func() {
			So(e.RunCircuit(c, []float64{math.Pi, 0}), ShouldBeNil)
			So(e.History(), ShouldHaveLength, 6)

			probs := e.State().Probabilities()
			So(probs[1], ShouldAlmostEqual, 1.0, 1e-9)

			hist, err := e.Measure(200)
			So(err, ShouldBeNil)
			So(hist, ShouldResemble, Histogram{"01": 200})
			So(spew.Sdump(hist), ShouldContainSubstring, `"01": (int) 200`)
		})

		Convey("Each qubit reads 1 with probability sin²(θ/2)", func() {
			theta := []float64{math.Pi / 3, math.Pi / 2}
			So(e.RunCircuit(c, theta), ShouldBeNil)

			probs := e.State().Probabilities()
			p0 := math.Pow(math.Sin(theta[0]/2), 2)
			p1 := math.Pow(math.Sin(theta[1]/2), 2)

			So(probs[0], ShouldAlmostEqual, (1-p0)*(1-p1), 1e-9)
			So(probs[1], ShouldAlmostEqual, p0*(1-p1), 1e-9)
			So(probs[2], ShouldAlmostEqual, (1-p0)*p1, 1e-9)
			So(probs[3], ShouldAlmostEqual, p0*p1, 1e-9)
		})

		Convey("Missing parameters fail the run", func() {
			err := e.RunCircuit(c, []float64{0.1})
			So(errors.Is(err, ErrInvalidCircuit), ShouldBeTrue)
		})

		Convey("A circuit of the wrong width is rejected", func() {
			err := e.RunCircuit(DemoCircuit(3), []float64{0, 0, 0})
			So(errors.Is(err, ErrInvalidCircuit), ShouldBeTrue)
			So(e.History(), ShouldBeEmpty)
		})
	})
}
