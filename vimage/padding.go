package vimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// BorderPad is the padding scheme applied outside the image border.
type BorderPad int

const (
	// BorderConstant fills the border with zeros.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the edge pixel.
	BorderReplicate
)

// PaddingGray pads img so that a kernel of size kernelSize anchored at anchor
// can slide over every original pixel.
func PaddingGray(img *image.Gray, kernelSize, anchor image.Point, border BorderPad) (*image.Gray, error) {
	if kernelSize.X <= 0 || kernelSize.Y <= 0 {
		return nil, errors.Errorf("invalid kernel size %v", kernelSize)
	}
	if anchor.X < 0 || anchor.Y < 0 || anchor.X >= kernelSize.X || anchor.Y >= kernelSize.Y {
		return nil, errors.Errorf("anchor %v out of kernel %v", anchor, kernelSize)
	}
	original := img.Bounds().Size()
	top := anchor.Y
	left := anchor.X
	bottom := kernelSize.Y - anchor.Y - 1
	right := kernelSize.X - anchor.X - 1
	padded := image.NewGray(image.Rect(0, 0, original.X+left+right, original.Y+top+bottom))
	for y := 0; y < padded.Bounds().Dy(); y++ {
		for x := 0; x < padded.Bounds().Dx(); x++ {
			srcX := x - left
			srcY := y - top
			inside := srcX >= 0 && srcY >= 0 && srcX < original.X && srcY < original.Y
			switch {
			case inside:
				padded.SetGray(x, y, img.GrayAt(srcX, srcY))
			case border == BorderReplicate:
				cx := clampInt(srcX, 0, original.X-1)
				cy := clampInt(srcY, 0, original.Y-1)
				padded.SetGray(x, y, img.GrayAt(cx, cy))
			default:
				padded.SetGray(x, y, color.Gray{0})
			}
		}
	}
	return padded, nil
}

func clampInt(x, min, max int) int {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
