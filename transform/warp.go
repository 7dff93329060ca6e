package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/unshake/unshake/utils"
)

// WarpImage resamples src under h with warpPerspective semantics: each output
// pixel x' is sampled from the source at h^-1 * x' with bilinear
// interpolation. Samples falling outside the source are filled with black.
func WarpImage(src *image.RGBA, h *Homography, size image.Point) (*image.RGBA, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, errors.Wrap(err, "cannot warp image")
	}
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	utils.ParallelForEachPixel(size, func(x, y int) {
		srcPt := inv.Apply(r2.Point{X: float64(x), Y: float64(y)})
		r, g, b, ok := bilinearRGB(src, srcW, srcH, srcPt.X, srcPt.Y)
		idx := out.PixOffset(x, y)
		if ok {
			out.Pix[idx] = r
			out.Pix[idx+1] = g
			out.Pix[idx+2] = b
		}
		out.Pix[idx+3] = 0xff
	})
	return out, nil
}

// WarpMask warps the all-ones w x h mask under h. A pixel of the result is 1
// iff its inverse-mapped sample point lies inside the source support.
func WarpMask(size image.Point, h *Homography) (*image.Gray, error) {
	inv, err := h.Inverse()
	if err != nil {
		return nil, errors.Wrap(err, "cannot warp mask")
	}
	mask := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	maxX := float64(size.X - 1)
	maxY := float64(size.Y - 1)
	utils.ParallelForEachPixel(size, func(x, y int) {
		srcPt := inv.Apply(r2.Point{X: float64(x), Y: float64(y)})
		if srcPt.X >= 0 && srcPt.X <= maxX && srcPt.Y >= 0 && srcPt.Y <= maxY {
			mask.Pix[mask.PixOffset(x, y)] = 1
		}
	})
	return mask, nil
}

// bilinearRGB samples src at the fractional position (fx, fy). Corner samples
// outside the source contribute zero, matching a constant black border. The
// boolean result is false when every corner is out of bounds.
func bilinearRGB(src *image.RGBA, w, h int, fx, fy float64) (uint8, uint8, uint8, bool) {
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	if x0 < -1 || y0 < -1 || x0 > w-1 || y0 > h-1 {
		return 0, 0, 0, false
	}
	dx := fx - float64(x0)
	dy := fy - float64(y0)
	var r, g, b float64
	any := false
	corners := [4]struct {
		x, y int
		w    float64
	}{
		{x0, y0, (1 - dx) * (1 - dy)},
		{x0 + 1, y0, dx * (1 - dy)},
		{x0, y0 + 1, (1 - dx) * dy},
		{x0 + 1, y0 + 1, dx * dy},
	}
	for _, c := range corners {
		if c.x < 0 || c.y < 0 || c.x >= w || c.y >= h {
			continue
		}
		any = true
		idx := src.PixOffset(c.x, c.y)
		r += c.w * float64(src.Pix[idx])
		g += c.w * float64(src.Pix[idx+1])
		b += c.w * float64(src.Pix[idx+2])
	}
	if !any {
		return 0, 0, 0, false
	}
	return uint8(utils.ClampF64(r+0.5, 0, 255)),
		uint8(utils.ClampF64(g+0.5, 0, 255)),
		uint8(utils.ClampF64(b+0.5, 0, 255)),
		true
}
