package stabilize

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fatal pipeline errors. Per-frame failures are demoted to FrameWarning
// entries instead and never abort a run.
var (
	// ErrEmptySequence is returned when fewer than 2 frames are supplied.
	ErrEmptySequence = errors.New("frame sequence needs at least 2 frames")
	// ErrInconsistentFrameSize is returned when the frames do not all share
	// one size.
	ErrInconsistentFrameSize = errors.New("all frames must have the same dimensions")
	// ErrEmptyCommonSupport is returned when no pixel is valid in every
	// warped frame, so no crop exists.
	ErrEmptyCommonSupport = errors.New("warped frames have no common support")
)

// Per-frame error conditions, recorded as warnings.
var (
	// ErrInsufficientFeatures marks a frame pair with too few keypoints or
	// surviving matches to fit a homography.
	ErrInsufficientFeatures = errors.New("not enough features to track")
	// ErrDegenerateHomography marks a tracked homography that is non-finite
	// or near-singular.
	ErrDegenerateHomography = errors.New("tracked homography is degenerate")
	// ErrDegenerateSmoothedMatrix marks a smoothed path matrix that cannot
	// be inverted.
	ErrDegenerateSmoothedMatrix = errors.New("smoothed path matrix is not invertible")
)

// FrameWarning records a non-fatal failure tied to a frame index. The frame's
// transform falls back to identity and the pipeline continues.
type FrameWarning struct {
	Index int
	Err   error
}

func (w FrameWarning) Error() string {
	return fmt.Sprintf("frame %d: %v", w.Index, w.Err)
}

// Unwrap exposes the underlying condition to errors.Is.
func (w FrameWarning) Unwrap() error {
	return w.Err
}
