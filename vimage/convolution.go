package vimage

import (
	"image"
	"image/color"

	"github.com/unshake/unshake/utils"
)

// Kernel is a 2D convolution kernel.
type Kernel struct {
	Content [][]float64
	Width   int
	Height  int
}

// NewKernel returns an empty kernel of the given size.
func NewKernel(width, height int) *Kernel {
	content := make([][]float64, height)
	for i := range content {
		content[i] = make([]float64, width)
	}
	return &Kernel{content, width, height}
}

// At returns the kernel value at (x, y).
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Size returns the kernel dimensions.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// Sum returns the sum of all kernel entries.
func (k *Kernel) Sum() float64 {
	var sum float64
	for y := 0; y < k.Height; y++ {
		for x := 0; x < k.Width; x++ {
			sum += k.Content[y][x]
		}
	}
	return sum
}

// Normalize returns a copy of the kernel scaled so its entries sum to 1.
func (k *Kernel) Normalize() *Kernel {
	normalized := NewKernel(k.Width, k.Height)
	sum := k.Sum()
	if sum == 0 {
		sum = 1
	}
	for y := 0; y < k.Height; y++ {
		for x := 0; x < k.Width; x++ {
			normalized.Content[y][x] = k.Content[y][x] / sum
		}
	}
	return normalized
}

// GetGaussian5 returns the 5x5 Gaussian blurring kernel.
func GetGaussian5() *Kernel {
	return &Kernel{[][]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}, 5, 5}
}

// ConvolveGray applies a convolution kernel to a grayscale image. The anchor
// is a point inside the kernel area; the pixel under the anchor receives the
// convolution result.
func ConvolveGray(img *image.Gray, kernel *Kernel, anchor image.Point, border BorderPad) (*image.Gray, error) {
	kernelSize := kernel.Size()
	padded, err := PaddingGray(img, kernelSize, anchor, border)
	if err != nil {
		return nil, err
	}
	originalSize := img.Bounds().Size()
	resultImage := image.NewGray(img.Bounds())
	utils.ParallelForEachPixel(originalSize, func(x, y int) {
		sum := float64(0)
		for ky := 0; ky < kernelSize.Y; ky++ {
			for kx := 0; kx < kernelSize.X; kx++ {
				pixel := padded.GrayAt(x+kx, y+ky)
				kE := kernel.At(kx, ky)
				sum += float64(pixel.Y) * kE
			}
		}
		sum = utils.ClampF64(sum, 0, 255)
		resultImage.SetGray(x, y, color.Gray{uint8(sum)})
	})
	return resultImage, nil
}
