// Package keypoints implements corner detection, SIFT-class float
// descriptors and brute-force descriptor matching for pairs of grayscale
// images.
package keypoints

import (
	"image"
)

type (
	// KeyPoint is an image.Point that contains coordinates of a kp.
	KeyPoint image.Point
	// KeyPoints is a slice of image.Point that contains several kps.
	KeyPoints []image.Point
)

// RescaleKeypoints rescales detected keypoints from a pyramid layer back to
// the original image coordinates.
func RescaleKeypoints(kps KeyPoints, scale int) KeyPoints {
	rescaled := make(KeyPoints, len(kps))
	for i, kp := range kps {
		rescaled[i] = image.Point{kp.X * scale, kp.Y * scale}
	}
	return rescaled
}
