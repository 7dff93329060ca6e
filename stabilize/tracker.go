package stabilize

import (
	"image"
	"math"
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/unshake/unshake/keypoints"
	"github.com/unshake/unshake/transform"
)

// minTrackedMatches is the smallest number of keypoints and surviving matches
// a frame pair must yield to fit a homography.
const minTrackedMatches = 4

// Tracker estimates the homography between two grayscale frames from sparse
// feature matches: detection, cross-checked descriptor matching, RANSAC over
// 4-point samples, then a least-squares refit on the best inlier set.
type Tracker struct {
	fastCfg  *keypoints.FASTConfig
	pyrCfg   *keypoints.PyramidConfig
	matchCfg *keypoints.MatchingConfig
	iters    int
	eps      float64
	rng      *rand.Rand
	logger   golog.Logger
}

// NewTracker returns a tracker configured by opts. The RANSAC sampler is
// seeded from opts.RNGSeed, so two trackers with the same seed walk the same
// sample sequence.
func NewTracker(opts *Options, logger golog.Logger) *Tracker {
	return &Tracker{
		fastCfg:  opts.Detector,
		pyrCfg:   opts.Pyramid,
		matchCfg: opts.Matching,
		iters:    opts.RANSACIters,
		eps:      opts.RANSACEps,
		rng:      rand.New(rand.NewSource(opts.RNGSeed)),
		logger:   logger,
	}
}

// Track returns the homography H mapping points of imgA onto their matched
// positions in imgB, so H.Apply(p) ~ q for corresponding p in A and q in B.
func (t *Tracker) Track(imgA, imgB *image.Gray) (*transform.Homography, error) {
	kpsA, descsA, err := keypoints.ComputeKeypointsAndDescriptors(imgA, t.fastCfg, t.pyrCfg)
	if err != nil {
		return nil, err
	}
	kpsB, descsB, err := keypoints.ComputeKeypointsAndDescriptors(imgB, t.fastCfg, t.pyrCfg)
	if err != nil {
		return nil, err
	}
	if len(kpsA) < minTrackedMatches || len(kpsB) < minTrackedMatches {
		return nil, errors.Wrapf(ErrInsufficientFeatures, "%d and %d keypoints detected", len(kpsA), len(kpsB))
	}
	matches, err := keypoints.MatchDescriptors(descsA, descsB, t.matchCfg, t.logger)
	if err != nil {
		return nil, errors.Wrap(ErrInsufficientFeatures, err.Error())
	}
	if len(matches) < minTrackedMatches {
		return nil, errors.Wrapf(ErrInsufficientFeatures, "%d matches survived filtering", len(matches))
	}
	ptsA, ptsB, err := keypoints.GetMatchingKeyPoints(matches, kpsA, kpsB)
	if err != nil {
		return nil, err
	}
	srcPts := toFloatPoints(ptsA)
	dstPts := toFloatPoints(ptsB)

	bestInliers := t.ransacInliers(srcPts, dstPts)
	if len(bestInliers) < minTrackedMatches {
		return nil, errors.Wrapf(ErrInsufficientFeatures, "only %d RANSAC inliers", len(bestInliers))
	}

	inSrc := make([]r2.Point, len(bestInliers))
	inDst := make([]r2.Point, len(bestInliers))
	for i, idx := range bestInliers {
		inSrc[i] = srcPts[idx]
		inDst[i] = dstPts[idx]
	}
	h, err := transform.EstimateLeastSquaresHomography(inSrc, inDst)
	if err != nil {
		return nil, errors.Wrap(ErrDegenerateHomography, err.Error())
	}
	if h.IsDegenerate() {
		return nil, errors.Wrapf(ErrDegenerateHomography, "|det| = %g", math.Abs(h.Det()))
	}
	t.logger.Debugf("tracked homography with %d/%d inliers", len(bestInliers), len(matches))
	return h, nil
}

// ransacInliers runs the RANSAC loop and returns the indices of the best
// inlier set. Candidates with equal inlier counts resolve to the one with
// the lower total residual.
func (t *Tracker) ransacInliers(srcPts, dstPts []r2.Point) []int {
	var bestInliers []int
	bestResidual := math.Inf(1)
	samplesSrc := make([]r2.Point, minTrackedMatches)
	samplesDst := make([]r2.Point, minTrackedMatches)
	for iter := 0; iter < t.iters; iter++ {
		sample := t.drawDistinctSample(len(srcPts))
		for i, idx := range sample {
			samplesSrc[i] = srcPts[idx]
			samplesDst[i] = dstPts[idx]
		}
		h, err := transform.EstimateExactHomographyFrom4(samplesSrc, samplesDst)
		if err != nil || h.IsDegenerate() {
			continue
		}
		inliers := make([]int, 0, len(srcPts))
		residual := 0.0
		for i := range srcPts {
			q := h.Apply(srcPts[i])
			errDist := math.Hypot(q.X-dstPts[i].X, q.Y-dstPts[i].Y)
			if errDist < t.eps {
				inliers = append(inliers, i)
				residual += errDist
			}
		}
		if len(inliers) > len(bestInliers) ||
			(len(inliers) == len(bestInliers) && residual < bestResidual) {
			bestInliers = inliers
			bestResidual = residual
		}
	}
	return bestInliers
}

// drawDistinctSample draws 4 distinct match indices uniformly at random,
// redrawing on duplicates.
func (t *Tracker) drawDistinctSample(n int) []int {
	sample := make([]int, 0, minTrackedMatches)
	for len(sample) < minTrackedMatches {
		idx := t.rng.Intn(n)
		dup := false
		for _, s := range sample {
			if s == idx {
				dup = true
				break
			}
		}
		if !dup {
			sample = append(sample, idx)
		}
	}
	return sample
}

func toFloatPoints(pts keypoints.KeyPoints) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = r2.Point{X: float64(pt.X), Y: float64(pt.Y)}
	}
	return out
}
