package keypoints

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	DoCrossCheck bool    `json:"do_cross_check"`
	MaxDist      float64 `json:"max_dist"` // 0 disables the distance gate
}

// DefaultMatchingConfig returns the matching parameters used by the
// stabilization pipeline: cross-checked, no absolute distance gate.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{DoCrossCheck: true, MaxDist: 0}
}

// Match pairs a descriptor in the first (query) set with one in the second
// (train) set.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// DescriptorsL2Distance computes the pairwise L2 distance matrix between two
// descriptor sets; entry [i][j] is the distance between desc1[i] and
// desc2[j].
func DescriptorsL2Distance(desc1, desc2 Descriptors) ([][]float64, error) {
	if len(desc1) == 0 || len(desc2) == 0 {
		return nil, errors.New("cannot compute distances on empty descriptor sets")
	}
	distances := make([][]float64, len(desc1))
	for i, d1 := range desc1 {
		row := make([]float64, len(desc2))
		for j, d2 := range desc2 {
			var sum float64
			for k := 0; k < DescriptorSize; k++ {
				diff := float64(d1[k]) - float64(d2[k])
				sum += diff * diff
			}
			row[j] = math.Sqrt(sum)
		}
		distances[i] = row
	}
	return distances, nil
}

// getArgMinDistancesPerRow returns, for each row, the column index of the
// minimum entry. Ties resolve to the lowest index.
func getArgMinDistancesPerRow(distances [][]float64) []int {
	argMins := make([]int, len(distances))
	for i, row := range distances {
		argMins[i] = floats.MinIdx(row)
	}
	return argMins
}

// transpose returns the transposed distance matrix.
func transpose(distances [][]float64) [][]float64 {
	if len(distances) == 0 {
		return nil
	}
	t := make([][]float64, len(distances[0]))
	for j := range t {
		t[j] = make([]float64, len(distances))
		for i := range distances {
			t[j][i] = distances[i][j]
		}
	}
	return t
}

// MatchDescriptors performs brute-force matching of two descriptor sets with
// L2 distance. With DoCrossCheck set, a match (i, j) is kept only if j is
// i's nearest neighbor in the second set AND i is j's nearest neighbor in
// the first. Matches are returned sorted by ascending distance.
func MatchDescriptors(desc1, desc2 Descriptors, cfg *MatchingConfig, logger golog.Logger) ([]Match, error) {
	distances, err := DescriptorsL2Distance(desc1, desc2)
	if err != nil {
		return nil, err
	}
	indices2 := getArgMinDistancesPerRow(distances)
	maskIdx := make([]int, len(desc1))
	for i := range maskIdx {
		maskIdx[i] = 1
	}
	if cfg.DoCrossCheck {
		distT := transpose(distances)
		matches1 := getArgMinDistancesPerRow(distT)
		for i := range desc1 {
			if matches1[indices2[i]] != i {
				maskIdx[i] = 0
			}
		}
	}
	if cfg.MaxDist > 0 {
		for i := range desc1 {
			if distances[i][indices2[i]] >= cfg.MaxDist {
				maskIdx[i] = 0
			}
		}
	}
	idx1 := make([]int, 0, len(desc1))
	idx2 := make([]int, 0, len(desc1))
	for i := range desc1 {
		if maskIdx[i] == 1 {
			idx1 = append(idx1, i)
			idx2 = append(idx2, indices2[i])
		}
	}
	dist := make([]float64, len(idx1))
	for i := range dist {
		dist[i] = distances[idx1[i]][idx2[i]]
	}
	sortedIndices := make([]int, len(idx1))
	floats.Argsort(dist, sortedIndices)
	matches := make([]Match, len(idx1))
	for i, idx := range sortedIndices {
		matches[i] = Match{QueryIdx: idx1[idx], TrainIdx: idx2[idx], Distance: dist[i]}
	}
	logger.Debugf("%d raw pairs, %d matches after filtering", len(desc1), len(matches))
	return matches, nil
}

// GetMatchingKeyPoints takes the matches and the keypoints of both images and
// returns the two corresponding keypoint slices, index-aligned with matches.
func GetMatchingKeyPoints(matches []Match, kps1, kps2 KeyPoints) (KeyPoints, KeyPoints, error) {
	matchedKps1 := make(KeyPoints, len(matches))
	matchedKps2 := make(KeyPoints, len(matches))
	for i, match := range matches {
		if match.QueryIdx >= len(kps1) || match.TrainIdx >= len(kps2) {
			return nil, nil, errors.Errorf("match %d references keypoints out of range", i)
		}
		matchedKps1[i] = kps1[match.QueryIdx]
		matchedKps2[i] = kps2[match.TrainIdx]
	}
	return matchedKps1, matchedKps2, nil
}
