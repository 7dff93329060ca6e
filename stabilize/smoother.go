package stabilize

import (
	"github.com/unshake/unshake/transform"
)

// SmoothPath applies the symmetric weight filter to the cumulative motion
// path. Near the sequence ends the filter window is clipped and the weight
// sum shrinks accordingly; dividing by it yields a local weighted average
// instead of a zero-padded one, so the smoothed path does not drift at the
// boundaries.
func SmoothPath(cumulative []*transform.Homography, weights []float64, progress ProgressFunc) []*transform.Homography {
	n := len(cumulative)
	radius := len(weights) / 2
	smoothed := make([]*transform.Homography, n)
	progress(StageSmoothing, 0)
	for i := 0; i < n; i++ {
		var sum *transform.Homography
		weightSum := 0.0
		for j, w := range weights {
			idx := i + j - radius
			if idx < 0 || idx >= n {
				continue
			}
			term := cumulative[idx].Scale(w)
			if sum == nil {
				sum = term
			} else {
				sum = sum.Add(term)
			}
			weightSum += w
		}
		smoothed[i] = sum.Scale(1 / weightSum)
		progress(StageSmoothing, float64(i+1)/float64(n))
	}
	return smoothed
}
