package keypoints

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	viamutils "go.viam.com/utils"

	"github.com/unshake/unshake/utils"
)

// FASTConfig holds the parameters necessary to compute the FAST keypoints.
type FASTConfig struct {
	NMatchesCircle int     `json:"n_matches"`
	NMSWinSize     int     `json:"nms_win_size_px"`
	Threshold      float64 `json:"threshold"` // relative to the 0-255 pixel range
}

// DefaultFASTConfig returns the detection parameters used by the
// stabilization pipeline when none are supplied.
func DefaultFASTConfig() *FASTConfig {
	return &FASTConfig{
		NMatchesCircle: 9,
		NMSWinSize:     7,
		Threshold:      0.10,
	}
}

// LoadFASTConfiguration loads a FASTConfig from a json file.
func LoadFASTConfiguration(file string) *FASTConfig {
	var config FASTConfig
	filePath := filepath.Clean(file)
	configFile, err := os.Open(filePath)
	defer viamutils.UncheckedErrorFunc(configFile.Close)
	if err != nil {
		return nil
	}
	jsonParser := json.NewDecoder(configFile)
	err = jsonParser.Decode(&config)
	if err != nil {
		return nil
	}
	return &config
}

// Validate ensures all parts of the config are valid.
func (config *FASTConfig) Validate() error {
	if config.NMatchesCircle < 9 || config.NMatchesCircle > 16 {
		return errors.New("n_matches must be between 9 and 16")
	}
	if config.NMSWinSize < 1 {
		return errors.New("nms_win_size_px must be positive")
	}
	if config.Threshold <= 0 || config.Threshold >= 1 {
		return errors.New("threshold must be in (0, 1)")
	}
	return nil
}

var (
	// CrossIdx contains the neighborhood offsets for the fast 4-point test.
	CrossIdx = []image.Point{{0, -3}, {3, 0}, {0, 3}, {-3, 0}}
	// CircleIdx contains the Bresenham circle of radius 3 around a candidate
	// corner, in clockwise order starting above the center.
	CircleIdx = []image.Point{
		{0, -3}, {1, -3}, {2, -2}, {3, -1}, {3, 0}, {3, 1}, {2, 2}, {1, 3},
		{0, 3}, {-1, 3}, {-2, 2}, {-3, 1}, {-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
	}
)

// GetPointValuesInNeighborhood returns the pixel values at the offsets in
// neighborhood around pt.
func GetPointValuesInNeighborhood(img *image.Gray, pt image.Point, neighborhood []image.Point) []float64 {
	vals := make([]float64, len(neighborhood))
	for i, off := range neighborhood {
		vals[i] = float64(img.GrayAt(pt.X+off.X, pt.Y+off.Y).Y)
	}
	return vals
}

// getBrighterValues returns a binary slice marking the values of s strictly
// brighter than t.
func getBrighterValues(s []float64, t float64) []float64 {
	brighter := make([]float64, len(s))
	for i, v := range s {
		if v > t {
			brighter[i] = 1
		}
	}
	return brighter
}

// getDarkerValues returns a binary slice marking the values of s strictly
// darker than t.
func getDarkerValues(s []float64, t float64) []float64 {
	darker := make([]float64, len(s))
	for i, v := range s {
		if v < t {
			darker[i] = 1
		}
	}
	return darker
}

// isValidSliceVals returns true if s contains strictly more than n
// consecutive non-zero entries, treating s as circular.
func isValidSliceVals(s []float64, n int) bool {
	if len(s) == 0 {
		return false
	}
	doubled := append(append([]float64{}, s...), s...)
	run := 0
	for _, v := range doubled {
		if v > 0 {
			run++
			if run > n {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sumOfPositiveValuesSlice(s []float64) float64 {
	var sum float64
	for _, v := range s {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

func sumOfNegativeValuesSlice(s []float64) float64 {
	var sum float64
	for _, v := range s {
		if v < 0 {
			sum += v
		}
	}
	return sum
}

// computeFASTScore scores a corner candidate by the absolute deviations of
// its circle neighborhood from the center value.
func computeFASTScore(img *image.Gray, pt image.Point) float64 {
	center := float64(img.GrayAt(pt.X, pt.Y).Y)
	circleVals := GetPointValuesInNeighborhood(img, pt, CircleIdx)
	diffs := make([]float64, len(circleVals))
	for i, v := range circleVals {
		diffs[i] = v - center
	}
	posSum := sumOfPositiveValuesSlice(diffs)
	negSum := sumOfNegativeValuesSlice(diffs)
	if posSum > -negSum {
		return posSum
	}
	return -negSum
}

// ComputeFAST computes the location of FAST keypoints in img. A pixel is a
// corner candidate if more than NMatchesCircle consecutive pixels on the
// Bresenham circle around it are all brighter or all darker than the center
// by the threshold; candidates then go through non-maximum suppression over
// NMSWinSize windows.
func ComputeFAST(img *image.Gray, cfg *FASTConfig) KeyPoints {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	t := cfg.Threshold * 255.
	// a circular run of more than NMatchesCircle pixels always covers at least
	// (NMatchesCircle+1)/4 of the 4 cross pixels
	minCross := float64((cfg.NMatchesCircle + 1) / 4)

	type scored struct {
		pt    image.Point
		score float64
	}
	candidates := make([]scored, 0)
	for y := 3; y < h-3; y++ {
		for x := 3; x < w-3; x++ {
			pt := image.Point{x, y}
			center := float64(img.GrayAt(x, y).Y)
			// 4-point pre-test rejects most non-corners cheaply
			crossVals := GetPointValuesInNeighborhood(img, pt, CrossIdx)
			brighterCross := sumSlice(getBrighterValues(crossVals, center+t))
			darkerCross := sumSlice(getDarkerValues(crossVals, center-t))
			if brighterCross < minCross && darkerCross < minCross {
				continue
			}
			circleVals := GetPointValuesInNeighborhood(img, pt, CircleIdx)
			brighter := getBrighterValues(circleVals, center+t)
			darker := getDarkerValues(circleVals, center-t)
			if !isValidSliceVals(brighter, cfg.NMatchesCircle) && !isValidSliceVals(darker, cfg.NMatchesCircle) {
				continue
			}
			candidates = append(candidates, scored{pt, computeFASTScore(img, pt)})
		}
	}

	// non-maximum suppression: keep a candidate only if no stronger candidate
	// lies within the suppression window
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	half := cfg.NMSWinSize / 2
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		suppressed := false
		for _, k := range kept {
			if utils.AbsInt(c.pt.X-k.pt.X) <= half && utils.AbsInt(c.pt.Y-k.pt.Y) <= half {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}

	// return in scan order so detection output does not depend on sort
	// stability across candidate score ties
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].pt.Y != kept[j].pt.Y {
			return kept[i].pt.Y < kept[j].pt.Y
		}
		return kept[i].pt.X < kept[j].pt.X
	})
	kps := make(KeyPoints, len(kept))
	for i, c := range kept {
		kps[i] = c.pt
	}
	return kps
}

func sumSlice(s []float64) float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum
}
