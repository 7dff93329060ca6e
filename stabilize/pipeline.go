// Package stabilize implements the video stabilization pipeline: inter-frame
// motion estimation over feature matches, smoothing of the cumulative camera
// path, per-frame warp updates, and the common-support crop solver.
package stabilize

import (
	"context"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/unshake/unshake/vimage"
)

// Stage names reported through the progress callback, in pipeline order.
const (
	StageEstimatingMotion = "estimating_motion"
	StageSmoothing        = "smoothing"
	StageComputingUpdates = "computing_updates"
	StageWarping          = "warping"
	StageCropping         = "cropping"
)

// ProgressFunc receives the running stage name and a completed fraction in
// [0, 1]. Implementations are invoked from the stabilizing goroutine and
// must be safe for the caller's own use.
type ProgressFunc func(stage string, fraction float64)

// VideoMetadata carries the container-level properties of a video through
// the pipeline.
type VideoMetadata struct {
	FPS        int     `json:"fps"`
	FourCC     int     `json:"fourcc"`
	Bitrate    float64 `json:"bitrate"`
	Size       image.Point
	FrameCount int `json:"frame_count"`
}

// Result is a successful stabilization run: the cropped warped frames, the
// crop applied to them, the adjusted metadata, and any per-frame warnings
// collected along the way.
type Result struct {
	Frames   []*image.RGBA
	Crop     CropRect
	Metadata VideoMetadata
	Warnings []FrameWarning
}

// Stabilize runs the full pipeline over frames: pairwise motion estimation,
// path smoothing, per-frame updates, warping and common-support cropping.
// Cancellation through ctx is honored between frames and stages and returns
// without partial output. Per-frame estimation failures degrade to identity
// transforms and come back in Result.Warnings.
func Stabilize(
	ctx context.Context,
	frames []*image.RGBA,
	md VideoMetadata,
	opts *Options,
	progress ProgressFunc,
	logger golog.Logger,
) (*Result, error) {
	if len(frames) < 2 {
		return nil, ErrEmptySequence
	}
	size := frames[0].Bounds().Size()
	for i, f := range frames {
		if !vimage.SameImgSize(f, frames[0]) {
			return nil, errors.Wrapf(ErrInconsistentFrameSize, "frame %d is %v, want %v", i, f.Bounds().Size(), size)
		}
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(string, float64) {}
	}

	tracker := NewTracker(opts, logger)
	estimator := NewMotionEstimator(tracker, logger)
	_, cumulative, warnings, err := estimator.Estimate(ctx, frames, progress)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "stabilization cancelled")
	}

	smoothed := SmoothPath(cumulative, opts.Filter, progress)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "stabilization cancelled")
	}

	updates, updateWarnings := ComputeUpdates(cumulative, smoothed, progress)
	warnings = append(warnings, updateWarnings...)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "stabilization cancelled")
	}

	warped, err := WarpFrames(ctx, frames, updates, progress)
	if err != nil {
		return nil, err
	}

	crop, err := FindCrop(ctx, updates, size, progress)
	if err != nil {
		return nil, err
	}

	cropped := make([]*image.RGBA, len(warped))
	for i, w := range warped {
		c, err := vimage.SubRGBA(w, crop.Rectangle())
		if err != nil {
			return nil, errors.Wrapf(err, "cannot crop frame %d", i)
		}
		cropped[i] = c
	}

	if len(warnings) > 0 {
		var combined error
		for _, w := range warnings {
			combined = multierr.Append(combined, w)
		}
		logger.Warnw("stabilization finished with degraded frames", "count", len(warnings), "detail", combined)
	}

	outMD := md
	outMD.Size = image.Point{crop.Size, crop.Size}
	outMD.FrameCount = len(cropped)
	return &Result{
		Frames:   cropped,
		Crop:     crop,
		Metadata: outMD,
		Warnings: warnings,
	}, nil
}
