package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// EstimateExactHomographyFrom4 computes the homography mapping pts1[i] to
// pts2[i] from exactly 4 correspondences, solving the 8x8 linear system with
// h22 fixed to 1.
func EstimateExactHomographyFrom4(pts1, pts2 []r2.Point) (*Homography, error) {
	if len(pts1) != 4 || len(pts2) != 4 {
		return nil, errors.Errorf("need exactly 4 point pairs, got %d and %d", len(pts1), len(pts2))
	}
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := pts1[i].X, pts1[i].Y
		u, v := pts2[i].X, pts2[i].Y
		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(2*i, u)
		b.SetVec(2*i+1, v)
	}
	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, errors.Wrap(err, "degenerate point configuration")
	}
	vals := make([]float64, 9)
	for i := 0; i < 8; i++ {
		vals[i] = h.AtVec(i)
	}
	vals[8] = 1
	return NewHomography(vals)
}

// EstimateLeastSquaresHomography computes the homography mapping pts1[i] to
// pts2[i] from 4 or more correspondences via the normalized DLT: points are
// Hartley-normalized, the 2Nx9 system is solved by SVD, and the result is
// denormalized and rescaled so H[2][2] = 1.
func EstimateLeastSquaresHomography(pts1, pts2 []r2.Point) (*Homography, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	if len(pts1) < 4 {
		return nil, errors.Errorf("need at least 4 point pairs, got %d", len(pts1))
	}
	nPoints := len(pts1)
	points1, t1 := normalizePoints(pts1)
	points2, t2 := normalizePoints(pts2)

	m := mat.NewDense(2*nPoints, 9, nil)
	for i := range points1 {
		p := points1[i]
		q := points2[i]
		m.SetRow(2*i, []float64{-p.X, -p.Y, -1, 0, 0, 0, q.X * p.X, q.X * p.Y, q.X})
		m.SetRow(2*i+1, []float64{0, 0, 0, -p.X, -p.Y, -1, q.Y * p.X, q.Y * p.Y, q.Y})
	}

	svd := performSVD(m)
	if svd == nil {
		return nil, errors.New("SVD of the DLT system failed")
	}
	lastColV := svd.V.ColView(8)
	hData := make([]float64, 9)
	for i := range hData {
		hData[i] = lastColV.AtVec(i)
	}
	hNorm := mat.NewDense(3, 3, hData)

	// denormalize: H = T2^-1 * Hn * T1
	var t2Inv mat.Dense
	if err := t2Inv.Inverse(t2); err != nil {
		return nil, errors.Wrap(err, "normalization transform not invertible")
	}
	var h mat.Dense
	h.Mul(&t2Inv, hNorm)
	h.Mul(&h, t1)

	scale := h.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		return nil, errors.New("homography scale factor vanishes")
	}
	h.Scale(1/scale, &h)

	vals := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			vals = append(vals, h.At(r, c))
		}
	}
	return NewHomography(vals)
}

// normalizePoints normalizes points as described in Multiple View Geometry,
// Alg 4.2: centroid at the origin, mean distance sqrt(2).
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	nPoints := len(pts)
	mu := r2.Point{}
	for _, pt := range pts {
		mu.X += pt.X
		mu.Y += pt.Y
	}
	mu = mu.Mul(1. / float64(nPoints))
	d := 0.0
	for _, pt := range pts {
		x2 := (pt.X - mu.X) * (pt.X - mu.X)
		y2 := (pt.Y - mu.Y) * (pt.Y - mu.Y)
		d += math.Sqrt(x2+y2) / float64(nPoints)
	}
	if d == 0 {
		// coincident points; leave them in place and let the solver report
		// the degenerate configuration
		d = 1
	}
	scale := math.Sqrt(2) / d
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	t := mat.NewDense(3, 3, transformData)
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = r2.Point{X: scale * (pts[i].X - mu.X), Y: scale * (pts[i].Y - mu.Y)}
	}
	return pointsTransformed, t
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U  *mat.Dense
	V  *mat.Dense
	VT *mat.Dense
	S  *mat.Dense
}

// performSVD performs SVD on inputMatrix and returns matrices U, Sigma and V
// from the decomposition.
func performSVD(inputMatrix *mat.Dense) *matsSVD {
	var svd mat.SVD
	ok := svd.Factorize(inputMatrix, mat.SVDFull)
	if !ok {
		return nil
	}
	u, v, sigma, vt := &mat.Dense{}, &mat.Dense{}, &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	vt.CloneFrom(v.T())
	singularValues := svd.Values(nil)
	sigma.CloneFrom(mat.NewDiagDense(len(singularValues), singularValues))
	return &matsSVD{u, v, vt, sigma}
}
