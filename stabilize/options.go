package stabilize

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	viamutils "go.viam.com/utils"

	"github.com/unshake/unshake/keypoints"
)

// Options carries every tunable of the stabilization pipeline.
type Options struct {
	RANSACIters int     `json:"ransac_iters"`
	RANSACEps   float64 `json:"ransac_eps"` // inlier reprojection threshold, pixels

	// Filter holds the symmetric smoothing weights applied to the cumulative
	// motion path, centered on the current frame.
	Filter []float64 `json:"filter"`

	// RNGSeed seeds the RANSAC sampler; runs with equal seeds and inputs
	// produce identical outputs.
	RNGSeed int64 `json:"rng_seed"`

	Detector *keypoints.FASTConfig     `json:"fast"`
	Pyramid  *keypoints.PyramidConfig  `json:"pyramid"`
	Matching *keypoints.MatchingConfig `json:"matching"`
}

// DefaultOptions returns the standard pipeline parameters.
func DefaultOptions() *Options {
	return &Options{
		RANSACIters: 1000,
		RANSACEps:   10.0,
		Filter:      []float64{0.1, 0.3, 0.5, 0.3, 0.1},
		RNGSeed:     0,
		Detector:    keypoints.DefaultFASTConfig(),
		Pyramid:     keypoints.DefaultPyramidConfig(),
		Matching:    keypoints.DefaultMatchingConfig(),
	}
}

// LoadOptions loads pipeline options from a json file. Fields left out of
// the file keep their defaults.
func LoadOptions(file string) (*Options, error) {
	opts := DefaultOptions()
	filePath := filepath.Clean(file)
	configFile, err := os.Open(filePath)
	defer viamutils.UncheckedErrorFunc(configFile.Close)
	if err != nil {
		return nil, err
	}
	jsonParser := json.NewDecoder(configFile)
	if err := jsonParser.Decode(opts); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate ensures all parts of the options are valid.
func (o *Options) Validate() error {
	if o.RANSACIters < 1 {
		return errors.New("ransac_iters must be positive")
	}
	if o.RANSACEps <= 0 {
		return errors.New("ransac_eps must be positive")
	}
	if len(o.Filter)%2 != 1 {
		return errors.New("filter needs an odd number of weights")
	}
	for _, w := range o.Filter {
		if w <= 0 {
			return errors.New("filter weights must be positive")
		}
	}
	if o.Detector == nil || o.Pyramid == nil || o.Matching == nil {
		return errors.New("detector, pyramid and matching configs are required")
	}
	if err := o.Detector.Validate(); err != nil {
		return err
	}
	return o.Pyramid.Validate()
}
