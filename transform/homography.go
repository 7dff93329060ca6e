// Package transform provides planar projective transforms: the homography
// type and its algebra, estimation from point correspondences, and
// perspective warping of images and masks.
package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DegenerateDetEps is the determinant magnitude below which a homography is
// treated as non-invertible.
const DegenerateDetEps = 1e-8

// Homography is a 3x3 projective transform in homogeneous coordinates,
// applied to 2D points as H * (x, y, 1)^T followed by a perspective divide.
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates a Homography from a slice of 9 row-major values.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("a homography is a 3x3 matrix, need 9 values, got %d", len(vals))
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("homography contains non-finite values")
		}
	}
	d := mat.NewDense(3, 3, vals)
	return &Homography{d}, nil
}

// Identity returns the identity homography.
func Identity() *Homography {
	return &Homography{mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})}
}

// At returns the value at row r, column c.
func (h *Homography) At(r, c int) float64 {
	return h.matrix.At(r, c)
}

// Apply transforms pt through the homography and dehomogenizes the result.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// Mul returns the composition h * other.
func (h *Homography) Mul(other *Homography) *Homography {
	var res mat.Dense
	res.Mul(h.matrix, other.matrix)
	return &Homography{&res}
}

// Add returns the elementwise sum h + other.
func (h *Homography) Add(other *Homography) *Homography {
	var res mat.Dense
	res.Add(h.matrix, other.matrix)
	return &Homography{&res}
}

// Scale returns the homography scaled elementwise by s.
func (h *Homography) Scale(s float64) *Homography {
	var res mat.Dense
	res.Scale(s, h.matrix)
	return &Homography{&res}
}

// Det returns the determinant of the matrix.
func (h *Homography) Det() float64 {
	return mat.Det(h.matrix)
}

// IsDegenerate returns true if the matrix is non-finite or near-singular.
func (h *Homography) IsDegenerate() bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			v := h.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	return math.Abs(h.Det()) < DegenerateDetEps
}

// Inverse returns the inverse transform, or an error if the matrix is
// degenerate.
func (h *Homography) Inverse() (*Homography, error) {
	if h.IsDegenerate() {
		return nil, errors.New("cannot invert degenerate homography")
	}
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		return nil, errors.Wrap(err, "cannot invert homography")
	}
	return &Homography{&inv}, nil
}

// Clone returns a deep copy of the homography.
func (h *Homography) Clone() *Homography {
	var res mat.Dense
	res.CloneFrom(h.matrix)
	return &Homography{&res}
}

// FrobeniusDistance returns the Frobenius norm of h - other.
func (h *Homography) FrobeniusDistance(other *Homography) float64 {
	var diff mat.Dense
	diff.Sub(h.matrix, other.matrix)
	return mat.Norm(&diff, 2)
}

// RawValues returns the 9 row-major values of the matrix.
func (h *Homography) RawValues() []float64 {
	vals := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			vals = append(vals, h.At(r, c))
		}
	}
	return vals
}
