package stabilize

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/stat"

	"github.com/unshake/unshake/vimage"
)

func TestStabilizeValidation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx := context.Background()

	_, err := Stabilize(ctx, nil, VideoMetadata{}, nil, nil, logger)
	test.That(t, err, test.ShouldEqual, ErrEmptySequence)

	_, err = Stabilize(ctx, identicalFrames(1, 32, 32), VideoMetadata{}, nil, nil, logger)
	test.That(t, err, test.ShouldEqual, ErrEmptySequence)

	mixed := []*image.RGBA{
		image.NewRGBA(image.Rect(0, 0, 32, 32)),
		image.NewRGBA(image.Rect(0, 0, 16, 32)),
	}
	_, err = Stabilize(ctx, mixed, VideoMetadata{}, nil, nil, logger)
	test.That(t, errors.Is(err, ErrInconsistentFrameSize), test.ShouldBeTrue)

	bad := DefaultOptions()
	bad.RANSACIters = 0
	_, err = Stabilize(ctx, identicalFrames(2, 64, 64), VideoMetadata{}, bad, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStabilizeIdentitySequence(t *testing.T) {
	logger := golog.NewTestLogger(t)
	frames := identicalFrames(10, 128, 128)
	md := VideoMetadata{FPS: 30, Size: image.Point{128, 128}, FrameCount: 10}

	var mu sync.Mutex
	stages := map[string]bool{}
	progress := func(stage string, fraction float64) {
		mu.Lock()
		stages[stage] = true
		mu.Unlock()
		test.That(t, fraction, test.ShouldBeBetweenOrEqual, 0, 1)
	}

	result, err := Stabilize(context.Background(), frames, md, DefaultOptions(), progress, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(result.Warnings), test.ShouldEqual, 0)
	test.That(t, result.Crop, test.ShouldResemble, CropRect{X: 0, Y: 0, Size: 128})
	test.That(t, len(result.Frames), test.ShouldEqual, 10)
	for _, f := range result.Frames {
		test.That(t, f.Bounds().Size(), test.ShouldResemble, image.Point{128, 128})
		test.That(t, f.Pix, test.ShouldResemble, frames[0].Pix)
	}
	test.That(t, result.Metadata.Size, test.ShouldResemble, image.Point{128, 128})
	test.That(t, result.Metadata.FrameCount, test.ShouldEqual, 10)
	for _, stage := range []string{
		StageEstimatingMotion, StageSmoothing, StageComputingUpdates, StageWarping, StageCropping,
	} {
		test.That(t, stages[stage], test.ShouldBeTrue)
	}
}

func TestStabilizeHorizontalShake(t *testing.T) {
	logger := golog.NewTestLogger(t)
	// window origin oscillates horizontally around x=10
	shifts := []int{0, 5, -3, 4, -5, 3, 0, -4, 5, -2, 3, -5, 2, 0, 4, -3, 5, -4, 1, -1}
	offsets := make([]image.Point, len(shifts))
	for i, dx := range shifts {
		offsets[i] = image.Point{10 + dx, 10}
	}
	frames := shakySequence(offsets, 128, 128)
	md := VideoMetadata{FPS: 30, Size: image.Point{128, 128}, FrameCount: len(frames)}

	opts := DefaultOptions()
	tracker := NewTracker(opts, logger)
	estimator := NewMotionEstimator(tracker, logger)
	hs, cumulative, warnings, err := estimator.Estimate(context.Background(), frames, func(string, float64) {})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(warnings), test.ShouldEqual, 0)

	// pairwise homographies recover the translation within a pixel: camera
	// moving +d maps frame i into frame i-1 at +d
	for i := 1; i < len(frames); i++ {
		wantDx := float64(offsets[i].X - offsets[i-1].X)
		test.That(t, hs[i].At(0, 2), test.ShouldAlmostEqual, wantDx, 1)
		test.That(t, hs[i].At(1, 2), test.ShouldAlmostEqual, 0, 1)
	}

	// after smoothing, residual frame-to-frame motion shrinks to under 20%
	// of the input shake
	smoothed := SmoothPath(cumulative, opts.Filter, func(string, float64) {})
	_, updateWarnings := ComputeUpdates(cumulative, smoothed, func(string, float64) {})
	test.That(t, len(updateWarnings), test.ShouldEqual, 0)

	inDisp := make([]float64, 0, len(frames)-1)
	outDisp := make([]float64, 0, len(frames)-1)
	for i := 1; i < len(frames); i++ {
		inDisp = append(inDisp, cumulative[i].At(0, 2)-cumulative[i-1].At(0, 2))
		// the scene moves with the smoothed path in the stabilized output
		outDisp = append(outDisp, smoothed[i].At(0, 2)-smoothed[i-1].At(0, 2))
	}
	test.That(t, stat.StdDev(outDisp, nil), test.ShouldBeLessThan, 0.2*stat.StdDev(inDisp, nil))

	// the full pipeline completes with a non-empty square crop
	result, err := Stabilize(context.Background(), frames, md, opts, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Crop.Size, test.ShouldBeGreaterThan, 0)
	test.That(t, len(result.Frames), test.ShouldEqual, len(frames))
	for _, f := range result.Frames {
		test.That(t, f.Bounds().Dx(), test.ShouldEqual, result.Crop.Size)
		test.That(t, f.Bounds().Dy(), test.ShouldEqual, result.Crop.Size)
	}
}

func TestStabilizeDegeneratePair(t *testing.T) {
	logger := golog.NewTestLogger(t)
	frames := identicalFrames(5, 96, 96)
	grey := vimage.NewUniformRGBA(96, 96, greyPixel)
	frames[2] = grey

	result, err := Stabilize(context.Background(), frames, VideoMetadata{}, DefaultOptions(), nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(result.Frames), test.ShouldEqual, 5)
	// both pairs touching the featureless frame degrade to identity
	test.That(t, len(result.Warnings), test.ShouldBeGreaterThanOrEqualTo, 1)
	indices := map[int]bool{}
	for _, w := range result.Warnings {
		test.That(t, errors.Is(w, ErrInsufficientFeatures), test.ShouldBeTrue)
		indices[w.Index] = true
	}
	test.That(t, indices[2], test.ShouldBeTrue)
}

func TestStabilizeMinimumLength(t *testing.T) {
	logger := golog.NewTestLogger(t)
	frames := identicalFrames(2, 80, 64)
	result, err := Stabilize(context.Background(), frames, VideoMetadata{}, DefaultOptions(), nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(result.Frames), test.ShouldEqual, 2)
	test.That(t, result.Crop.Size, test.ShouldEqual, 64)
}

func TestStabilizeCancelledUpfront(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Stabilize(ctx, identicalFrames(4, 64, 64), VideoMetadata{}, DefaultOptions(), nil, logger)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestStabilizeCancelledAfterFirstProgress(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	progress := func(stage string, fraction float64) {
		once.Do(cancel)
	}
	_, err := Stabilize(ctx, identicalFrames(12, 64, 64), VideoMetadata{}, DefaultOptions(), progress, logger)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestStabilizeReproducible(t *testing.T) {
	logger := golog.NewTestLogger(t)
	offsets := []image.Point{{10, 10}, {14, 12}, {9, 11}, {12, 8}, {10, 10}}
	frames := shakySequence(offsets, 96, 96)
	opts := DefaultOptions()
	opts.RNGSeed = 1234

	r1, err := Stabilize(context.Background(), frames, VideoMetadata{}, opts, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	r2, err := Stabilize(context.Background(), frames, VideoMetadata{}, opts, nil, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, r1.Crop, test.ShouldResemble, r2.Crop)
	test.That(t, len(r1.Frames), test.ShouldEqual, len(r2.Frames))
	for i := range r1.Frames {
		test.That(t, r1.Frames[i].Pix, test.ShouldResemble, r2.Frames[i].Pix)
	}
}
