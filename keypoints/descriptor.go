package keypoints

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/unshake/unshake/vimage"
)

// DescriptorSize is the length of a keypoint descriptor.
const DescriptorSize = 128

// Descriptor is a 128-dimensional float vector describing the gradient
// structure around a keypoint: 4x4 spatial cells by 8 orientation bins over a
// 16x16 patch.
type Descriptor []float32

// Descriptors is a slice of descriptors.
type Descriptors []Descriptor

const (
	patchSize    = 16
	cellSize     = 4
	nOrientBins  = 8
	clampValue   = 0.2
	sigmaWeight  = 8.0
	minVectorL2  = 1e-12
	nSpatialCell = patchSize / cellSize
)

// ComputeDescriptors computes a descriptor for each keypoint. Keypoints whose
// patch leaves the image keep an all-zero descriptor, mirroring how border
// keypoints are handled in binary descriptor schemes.
func ComputeDescriptors(img *image.Gray, kps KeyPoints) (Descriptors, error) {
	kernel := vimage.GetGaussian5()
	normalized := kernel.Normalize()
	blurred, err := vimage.ConvolveGray(img, normalized, image.Point{2, 2}, vimage.BorderConstant)
	if err != nil {
		return nil, errors.Wrap(err, "cannot blur image for descriptors")
	}
	bounds := blurred.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	descs := make(Descriptors, len(kps))
	half := patchSize / 2
	for k, kp := range kps {
		desc := make(Descriptor, DescriptorSize)
		descs[k] = desc
		if kp.X-half < 1 || kp.Y-half < 1 || kp.X+half >= w-1 || kp.Y+half >= h-1 {
			continue
		}
		for dy := -half; dy < half; dy++ {
			for dx := -half; dx < half; dx++ {
				x := kp.X + dx
				y := kp.Y + dy
				gx := float64(blurred.GrayAt(x+1, y).Y) - float64(blurred.GrayAt(x-1, y).Y)
				gy := float64(blurred.GrayAt(x, y+1).Y) - float64(blurred.GrayAt(x, y-1).Y)
				mag := math.Hypot(gx, gy)
				if mag == 0 {
					continue
				}
				weight := math.Exp(-(float64(dx*dx) + float64(dy*dy)) / (2 * sigmaWeight * sigmaWeight))
				orient := math.Atan2(gy, gx) // (-pi, pi]
				bin := int(math.Floor((orient + math.Pi) / (2 * math.Pi) * nOrientBins))
				if bin >= nOrientBins {
					bin = nOrientBins - 1
				}
				cellX := (dx + half) / cellSize
				cellY := (dy + half) / cellSize
				idx := (cellY*nSpatialCell+cellX)*nOrientBins + bin
				desc[idx] += float32(weight * mag)
			}
		}
		normalizeDescriptor(desc)
	}
	return descs, nil
}

// normalizeDescriptor L2-normalizes d, clamps each entry at clampValue and
// renormalizes, reducing sensitivity to local contrast changes.
func normalizeDescriptor(d Descriptor) {
	l2Normalize(d)
	for i, v := range d {
		if v > clampValue {
			d[i] = clampValue
		}
	}
	l2Normalize(d)
}

func l2Normalize(d Descriptor) {
	var sum float64
	for _, v := range d {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < minVectorL2 {
		return
	}
	for i := range d {
		d[i] = float32(float64(d[i]) / norm)
	}
}
