package vimage

import (
	"image"

	"github.com/pkg/errors"
)

// Binary masks use 0 for invalid pixels and any non-zero value for valid ones.

// NewOnesMask returns a w x h mask with every pixel set to 1.
func NewOnesMask(w, h int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = 1
	}
	return mask
}

// MultiplyGrays multiplies two binary masks elementwise. A pixel of the
// result is 1 iff it is non-zero in both inputs.
func MultiplyGrays(g1, g2 *image.Gray) (*image.Gray, error) {
	if !SameImgSize(g1, g2) {
		return nil, errors.Errorf("masks differ in size: %v vs %v", g1.Bounds().Size(), g2.Bounds().Size())
	}
	result := image.NewGray(g1.Bounds())
	for i := range result.Pix {
		if g1.Pix[i] != 0 && g2.Pix[i] != 0 {
			result.Pix[i] = 1
		}
	}
	return result, nil
}

// SubGray returns a copy of region r of the mask with origin (0, 0).
func SubGray(mask *image.Gray, r image.Rectangle) (*image.Gray, error) {
	if !r.In(mask.Bounds()) {
		return nil, errors.Errorf("region %v not contained in mask bounds %v", r, mask.Bounds())
	}
	sub := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			sub.SetGray(x, y, mask.GrayAt(r.Min.X+x, r.Min.Y+y))
		}
	}
	return sub, nil
}

// CountNonZero returns the number of non-zero pixels in the mask.
func CountNonZero(mask *image.Gray) int {
	count := 0
	for _, p := range mask.Pix {
		if p != 0 {
			count++
		}
	}
	return count
}
