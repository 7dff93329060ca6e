package keypoints

import (
	"image"
	"math"
	"testing"

	"go.viam.com/test"
)

func descriptorNorm(d Descriptor) float64 {
	var sum float64
	for _, v := range d {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestComputeDescriptors(t *testing.T) {
	img := createTestImage()
	kps := KeyPoints{{50, 30}, {99, 149}, {2, 2}}
	descs, err := ComputeDescriptors(img, kps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(descs), test.ShouldEqual, 3)
	for _, d := range descs {
		test.That(t, len(d), test.ShouldEqual, DescriptorSize)
	}
	// interior keypoints carry unit-norm descriptors
	test.That(t, descriptorNorm(descs[0]), test.ShouldAlmostEqual, 1, 1e-3)
	test.That(t, descriptorNorm(descs[1]), test.ShouldAlmostEqual, 1, 1e-3)
	// border keypoint keeps the zero descriptor
	test.That(t, descriptorNorm(descs[2]), test.ShouldEqual, 0)
	// opposite corners see different gradient directions
	test.That(t, descs[0], test.ShouldNotResemble, descs[1])
}

func TestDescriptorEntriesFinite(t *testing.T) {
	img := createTestImage()
	descs, err := ComputeDescriptors(img, KeyPoints{{50, 30}})
	test.That(t, err, test.ShouldBeNil)
	for _, v := range descs[0] {
		test.That(t, math.IsNaN(float64(v)), test.ShouldBeFalse)
		test.That(t, v, test.ShouldBeGreaterThanOrEqualTo, float32(0))
		test.That(t, v, test.ShouldBeLessThanOrEqualTo, float32(1))
	}
}

func TestComputeDescriptorsEmptyImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	descs, err := ComputeDescriptors(img, KeyPoints{{16, 16}})
	test.That(t, err, test.ShouldBeNil)
	// no gradients anywhere, descriptor stays zero
	test.That(t, descriptorNorm(descs[0]), test.ShouldEqual, 0)
}
