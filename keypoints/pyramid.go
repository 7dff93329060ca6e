package keypoints

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/unshake/unshake/vimage"
)

// PyramidConfig controls multi-scale detection.
type PyramidConfig struct {
	Layers          int `json:"n_layers"`
	DownscaleFactor int `json:"downscale_factor"`
}

// DefaultPyramidConfig returns single-octave detection plus one downscaled
// layer, which is enough to track the camera shake magnitudes this pipeline
// targets.
func DefaultPyramidConfig() *PyramidConfig {
	return &PyramidConfig{Layers: 2, DownscaleFactor: 2}
}

// Validate ensures all parts of the config are valid.
func (config *PyramidConfig) Validate() error {
	if config.Layers < 1 {
		return errors.New("n_layers should be >= 1")
	}
	if config.Layers > 1 && config.DownscaleFactor <= 1 {
		return errors.New("downscale_factor should be greater than 1")
	}
	return nil
}

// ImagePyramid contains successively downscaled versions of an image and
// their scale factors relative to the original.
type ImagePyramid struct {
	Images []*image.Gray
	Scales []int
}

// GetImagePyramid computes the pyramid of im for the given config.
func GetImagePyramid(im *image.Gray, cfg *PyramidConfig) (*ImagePyramid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	images := []*image.Gray{im}
	scales := []int{1}
	w, h := im.Bounds().Dx(), im.Bounds().Dy()
	scale := 1
	for i := 1; i < cfg.Layers; i++ {
		scale *= cfg.DownscaleFactor
		nextW, nextH := w/scale, h/scale
		if nextW < 2*patchSize || nextH < 2*patchSize {
			break
		}
		resized := imaging.Resize(images[len(images)-1], nextW, nextH, imaging.Box)
		images = append(images, toGray(resized))
		scales = append(scales, scale)
	}
	return &ImagePyramid{Images: images, Scales: scales}, nil
}

func toGray(img image.Image) *image.Gray {
	return vimage.MakeGray(vimage.ToRGBA(img))
}

// ComputeKeypointsAndDescriptors detects corners over the image pyramid,
// rescales them to the original coordinates, and describes each one on its
// own pyramid layer.
func ComputeKeypointsAndDescriptors(im *image.Gray, fastCfg *FASTConfig, pyrCfg *PyramidConfig) (KeyPoints, Descriptors, error) {
	pyramid, err := GetImagePyramid(im, pyrCfg)
	if err != nil {
		return nil, nil, err
	}
	allPoints := make(KeyPoints, 0)
	allDescs := make(Descriptors, 0)
	for i, layer := range pyramid.Images {
		layerKps := ComputeFAST(layer, fastCfg)
		descs, err := ComputeDescriptors(layer, layerKps)
		if err != nil {
			return nil, nil, err
		}
		allPoints = append(allPoints, RescaleKeypoints(layerKps, pyramid.Scales[i])...)
		allDescs = append(allDescs, descs...)
	}
	return allPoints, allDescs, nil
}
