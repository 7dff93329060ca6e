package stabilize

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/unshake/unshake/transform"
)

// ComputeUpdates derives the per-frame update transforms
// U[i] = (H̃'[i])^-1 * H̃[i] that cancel the difference between the actual
// and the smoothed camera path. A non-invertible smoothed matrix demotes its
// update to identity with a warning.
func ComputeUpdates(
	cumulative, smoothed []*transform.Homography,
	progress ProgressFunc,
) ([]*transform.Homography, []FrameWarning) {
	n := len(cumulative)
	updates := make([]*transform.Homography, n)
	var warnings []FrameWarning
	progress(StageComputingUpdates, 0)
	for i := 0; i < n; i++ {
		inv, err := smoothed[i].Inverse()
		if err != nil {
			warnings = append(warnings, FrameWarning{Index: i, Err: errors.Wrap(ErrDegenerateSmoothedMatrix, err.Error())})
			updates[i] = transform.Identity()
		} else {
			updates[i] = inv.Mul(cumulative[i])
		}
		progress(StageComputingUpdates, float64(i+1)/float64(n))
	}
	return updates, warnings
}

// WarpFrames resamples every frame under its update transform. The warped
// frames keep the input dimensions.
func WarpFrames(
	ctx context.Context,
	frames []*image.RGBA,
	updates []*transform.Homography,
	progress ProgressFunc,
) ([]*image.RGBA, error) {
	n := len(frames)
	size := frames[0].Bounds().Size()
	warped := make([]*image.RGBA, n)
	progress(StageWarping, 0)
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "warping cancelled")
		}
		w, err := transform.WarpImage(frame, updates[i], size)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot warp frame %d", i)
		}
		warped[i] = w
		progress(StageWarping, float64(i+1)/float64(n))
	}
	return warped, nil
}
