package stabilize

import (
	"context"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/unshake/unshake/transform"
	"github.com/unshake/unshake/vimage"
)

// MotionEstimator produces the inter-frame homography sequence and its
// cumulative path.
type MotionEstimator struct {
	tracker *Tracker
	logger  golog.Logger
}

// NewMotionEstimator returns an estimator driving the given tracker.
func NewMotionEstimator(tracker *Tracker, logger golog.Logger) *MotionEstimator {
	return &MotionEstimator{tracker: tracker, logger: logger}
}

// Estimate computes, for N frames, the pairwise homographies H (H[0] is the
// identity, H[i] maps frame i into frame i-1's coordinates) and the
// cumulative path H̃ with H̃[i] = H̃[i-1] * H[i]. A failed pair demotes its
// H[i] to identity and is recorded as a warning; only cancellation aborts.
func (e *MotionEstimator) Estimate(
	ctx context.Context,
	frames []*image.RGBA,
	progress ProgressFunc,
) ([]*transform.Homography, []*transform.Homography, []FrameWarning, error) {
	n := len(frames)
	hs := make([]*transform.Homography, n)
	hs[0] = transform.Identity()
	var warnings []FrameWarning

	prevGray := vimage.MakeGray(frames[0])
	progress(StageEstimatingMotion, 0)
	for i := 1; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, errors.Wrap(err, "motion estimation cancelled")
		}
		curGray := vimage.MakeGray(frames[i])
		h, err := e.tracker.Track(curGray, prevGray)
		if err != nil {
			e.logger.Warnw("falling back to identity for frame pair", "frame", i, "error", err)
			warnings = append(warnings, FrameWarning{Index: i, Err: err})
			h = transform.Identity()
		}
		hs[i] = h
		prevGray = curGray
		progress(StageEstimatingMotion, float64(i)/float64(n-1))
	}

	cumulative := make([]*transform.Homography, n)
	cumulative[0] = hs[0]
	for i := 1; i < n; i++ {
		cumulative[i] = cumulative[i-1].Mul(hs[i])
	}
	return hs, cumulative, warnings, nil
}
