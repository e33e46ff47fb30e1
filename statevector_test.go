package qdispatch

import (
	"errors"
	"fmt"
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewStateVector(t *testing.T) {
	Convey("Given valid qubit counts", t, func() {
		for _, n := range []int{1, 2, 3, 5, 10} {
			sv, err := NewStateVector(n)
			So(err, ShouldBeNil)

			Convey(fmt.Sprintf("A %d-qubit register should start in |0...0⟩", n), func() {
				So(sv.Len(), ShouldEqual, 1<<n)
				So(sv.NumQubits(), ShouldEqual, n)
				So(sv.Amplitude(0), ShouldEqual, complex(1, 0))
				for i := 1; i < sv.Len(); i++ {
					So(sv.Amplitude(i), ShouldEqual, complex(0, 0))
				}
				So(sv.Norm(), ShouldAlmostEqual, 1.0, 1e-12)
				So(sv.IsNormalized(), ShouldBeTrue)
			})
		}
	})

	Convey("Given invalid qubit counts", t, func() {
		_, err := NewStateVector(0)
		So(errors.Is(err, ErrInvalidQubitCount), ShouldBeTrue)

		_, err = NewStateVector(-3)
		So(errors.Is(err, ErrInvalidQubitCount), ShouldBeTrue)

		_, err = NewStateVector(MaxQubits + 1)
		So(errors.Is(err, ErrCapacityExceeded), ShouldBeTrue)
	})
}

func TestStateVectorFrom(t *testing.T) {
	Convey("Given explicit amplitudes", t, func() {
		h := complex(1/math.Sqrt2, 0)

		Convey("A power-of-two length builds a register", func() {
			sv, err := StateVectorFrom([]complex128{h, 0, 0, h})
			So(err, ShouldBeNil)
			So(sv.NumQubits(), ShouldEqual, 2)
			So(sv.Probabilities()[3], ShouldAlmostEqual, 0.5, 1e-12)
		})

		Convey("Any other length is rejected", func() {
			_, err := StateVectorFrom([]complex128{1, 0, 0})
			So(errors.Is(err, ErrInvalidQubitCount), ShouldBeTrue)

			_, err = StateVectorFrom(nil)
			So(errors.Is(err, ErrInvalidQubitCount), ShouldBeTrue)
		})

		Convey("The caller's slice is not aliased", func() {
			amps := []complex128{1, 0}
			sv, _ := StateVectorFrom(amps)
			amps[0] = 0
			So(sv.Amplitude(0), ShouldEqual, complex(1, 0))

			out := sv.Amplitudes()
			out[0] = 5
			So(sv.Amplitude(0), ShouldEqual, complex(1, 0))
		})
	})
}

func TestBitstring(t *testing.T) {
	Convey("Bitstrings are fixed width, most significant bit first", t, func() {
		So(Bitstring(0, 3), ShouldEqual, "000")
		So(Bitstring(1, 3), ShouldEqual, "001")
		So(Bitstring(4, 3), ShouldEqual, "100")
		So(Bitstring(5, 4), ShouldEqual, "0101")
		So(Bitstring(1, 1), ShouldEqual, "1")
	})
}
