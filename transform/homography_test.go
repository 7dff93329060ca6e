package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestNewHomography(t *testing.T) {
	_, err := NewHomography([]float64{1, 0, 0})
	test.That(t, err, test.ShouldNotBeNil)

	h, err := NewHomography([]float64{1, 0, 5, 0, 1, -3, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(0, 2), test.ShouldEqual, 5)
	test.That(t, h.At(1, 2), test.ShouldEqual, -3)
}

func TestIdentityApply(t *testing.T) {
	id := Identity()
	pt := id.Apply(r2.Point{X: 12.5, Y: -4})
	test.That(t, pt.X, test.ShouldAlmostEqual, 12.5)
	test.That(t, pt.Y, test.ShouldAlmostEqual, -4)
	test.That(t, id.Det(), test.ShouldAlmostEqual, 1)
	test.That(t, id.IsDegenerate(), test.ShouldBeFalse)
}

func TestApplyPerspectiveDivide(t *testing.T) {
	// projective row makes z depend on x
	h, err := NewHomography([]float64{1, 0, 0, 0, 1, 0, 0.01, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	pt := h.Apply(r2.Point{X: 10, Y: 20})
	test.That(t, pt.X, test.ShouldAlmostEqual, 10/1.1)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 20/1.1)
}

func TestMulInverse(t *testing.T) {
	h, err := NewHomography([]float64{1.1, 0.02, 5, -0.01, 0.98, -3, 0.0001, 0.0002, 1})
	test.That(t, err, test.ShouldBeNil)
	inv, err := h.Inverse()
	test.That(t, err, test.ShouldBeNil)
	prod := h.Mul(inv)
	test.That(t, prod.FrobeniusDistance(Identity()), test.ShouldBeLessThan, 1e-9)
}

func TestDegenerate(t *testing.T) {
	h, err := NewHomography([]float64{1, 2, 3, 2, 4, 6, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.IsDegenerate(), test.ShouldBeTrue)
	_, err = h.Inverse()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddScale(t *testing.T) {
	sum := Identity().Add(Identity()).Scale(0.5)
	test.That(t, sum.FrobeniusDistance(Identity()), test.ShouldBeLessThan, 1e-12)
}

func TestEstimateExactHomographyFrom4(t *testing.T) {
	// translation by (4, -2)
	src := []r2.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 100}}
	dst := make([]r2.Point, len(src))
	for i, p := range src {
		dst[i] = r2.Point{X: p.X + 4, Y: p.Y - 2}
	}
	h, err := EstimateExactHomographyFrom4(src, dst)
	test.That(t, err, test.ShouldBeNil)
	for _, p := range []r2.Point{{X: 13, Y: 37}, {X: 73, Y: 21}} {
		q := h.Apply(p)
		test.That(t, q.X, test.ShouldAlmostEqual, p.X+4, 1e-6)
		test.That(t, q.Y, test.ShouldAlmostEqual, p.Y-2, 1e-6)
	}

	// collinear points cannot fix a homography
	bad := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	_, err = EstimateExactHomographyFrom4(bad, bad)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimateLeastSquaresHomography(t *testing.T) {
	// a mild projective transform, recovered from 12 noiseless points
	trueH, err := NewHomography([]float64{1.05, 0.03, 8, -0.02, 0.97, -5, 0.0001, -0.00005, 1})
	test.That(t, err, test.ShouldBeNil)
	src := make([]r2.Point, 0, 12)
	dst := make([]r2.Point, 0, 12)
	for _, x := range []float64{0, 50, 120, 200} {
		for _, y := range []float64{10, 80, 150} {
			p := r2.Point{X: x, Y: y}
			src = append(src, p)
			dst = append(dst, trueH.Apply(p))
		}
	}
	h, err := EstimateLeastSquaresHomography(src, dst)
	test.That(t, err, test.ShouldBeNil)
	for _, p := range src {
		q := h.Apply(p)
		want := trueH.Apply(p)
		test.That(t, q.X, test.ShouldAlmostEqual, want.X, 1e-4)
		test.That(t, q.Y, test.ShouldAlmostEqual, want.Y, 1e-4)
	}

	_, err = EstimateLeastSquaresHomography(src[:3], dst[:3])
	test.That(t, err, test.ShouldNotBeNil)
	_, err = EstimateLeastSquaresHomography(src, dst[:5])
	test.That(t, err, test.ShouldNotBeNil)
}
