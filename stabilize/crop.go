package stabilize

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/unshake/unshake/transform"
	"github.com/unshake/unshake/utils"
	"github.com/unshake/unshake/vimage"
)

// CropRect is a square cropping region in frame coordinates.
type CropRect struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

// Rectangle returns the crop as an image.Rectangle.
func (c CropRect) Rectangle() image.Rectangle {
	return image.Rect(c.X, c.Y, c.X+c.Size, c.Y+c.Size)
}

// FindCrop returns the largest axis-aligned square contained in the
// intersection of the warped supports of all frames. The common mask is the
// elementwise AND of each frame's warped all-ones mask; it is trimmed to a
// square on its longer axis before the inscribed-square search, matching the
// original solver. Returns ErrEmptyCommonSupport when no pixel survives the
// intersection.
func FindCrop(
	ctx context.Context,
	updates []*transform.Homography,
	size image.Point,
	progress ProgressFunc,
) (CropRect, error) {
	n := len(updates)
	mask := vimage.NewOnesMask(size.X, size.Y)
	progress(StageCropping, 0)
	for i, u := range updates {
		if err := ctx.Err(); err != nil {
			return CropRect{}, errors.Wrap(err, "cropping cancelled")
		}
		frameMask, err := transform.WarpMask(size, u)
		if err != nil {
			return CropRect{}, errors.Wrapf(err, "cannot build support mask for frame %d", i)
		}
		mask, err = vimage.MultiplyGrays(mask, frameMask)
		if err != nil {
			return CropRect{}, err
		}
		progress(StageCropping, float64(i+1)/float64(n+1))
	}
	if vimage.CountNonZero(mask) == 0 {
		return CropRect{}, ErrEmptyCommonSupport
	}

	minDim := utils.MinInt(size.X, size.Y)
	square, err := vimage.SubGray(mask, image.Rect(0, 0, minDim, minDim))
	if err != nil {
		return CropRect{}, err
	}
	crop, ok := largestInscribedSquare(square)
	if !ok {
		return CropRect{}, ErrEmptyCommonSupport
	}
	progress(StageCropping, 1)
	return crop, nil
}

// largestInscribedSquare runs the classic dynamic program over the binary
// mask, scanned from the bottom-right:
//
//	S[r][c] = 0 when mask is 0, 1 on the last row/column, and otherwise
//	1 + min(S[r+1][c], S[r][c+1], S[r+1][c+1]).
//
// The maximum S value is the side length; its first occurrence in row-major
// order from the top-left is the square's top-left corner.
func largestInscribedSquare(mask *image.Gray) (CropRect, bool) {
	w := mask.Bounds().Dx()
	h := mask.Bounds().Dy()
	s := make([][]int, h)
	for r := range s {
		s[r] = make([]int, w)
	}
	for r := h - 1; r >= 0; r-- {
		for c := w - 1; c >= 0; c-- {
			if mask.GrayAt(c, r).Y == 0 {
				continue
			}
			if r == h-1 || c == w-1 {
				s[r][c] = 1
				continue
			}
			s[r][c] = 1 + utils.MinInt(s[r+1][c], utils.MinInt(s[r][c+1], s[r+1][c+1]))
		}
	}
	best := 0
	bestR, bestC := 0, 0
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			if s[r][c] > best {
				best = s[r][c]
				bestR, bestC = r, c
			}
		}
	}
	if best == 0 {
		return CropRect{}, false
	}
	return CropRect{X: bestC, Y: bestR, Size: best}, true
}
