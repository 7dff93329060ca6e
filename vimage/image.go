// Package vimage provides the image plumbing shared by the stabilization
// pipeline: grayscale conversion, padding, convolution and binary masks.
package vimage

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"
)

// SameImgSize returns true if the two images have identical bounds sizes.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}

// MakeGray converts an RGBA frame to a grayscale image using the standard
// luminance conversion.
func MakeGray(pic *image.RGBA) *image.Gray {
	bounds := pic.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, pic, bounds.Min, draw.Src)
	return gray
}

// ToRGBA converts any image to an *image.RGBA, returning the input unchanged
// if it already is one.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// SubRGBA returns a copy of the region r of src. The result has its origin
// at (0, 0).
func SubRGBA(src *image.RGBA, r image.Rectangle) (*image.RGBA, error) {
	if !r.In(src.Bounds()) {
		return nil, errors.Errorf("crop %v not contained in image bounds %v", r, src.Bounds())
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst, nil
}

// NewUniformRGBA returns a w x h image filled with c.
func NewUniformRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}
