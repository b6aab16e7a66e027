// Package scoring converts raw platform ratings into percentile-of-max scores
// and ranks a cohort by them.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/okian/cpboard/internal/domain/model"
)

// Weights maps a platform to its weight in the Percentile sum.
type Weights map[model.Platform]float64

// DefaultWeights returns the canonical weight table. The Pyramid weight equals
// the two composed tiers' weights (0.05 + 0.10).
func DefaultWeights() Weights {
	return Weights{
		model.Codechef:              0.10,
		model.Codeforces:            0.25,
		model.GeeksforgeeksWeekly:   0.25,
		model.GeeksforgeeksPractice: 0.10,
		model.Leetcode:              0.075,
		model.Hackerrank:            0.075,
		model.Pyramid:               0.15,
	}
}

// ParseWeights resolves configuration keys to platforms. Keys match
// case-insensitively; when two keys name one platform, the lower-case key
// (the environment override) wins.
func ParseWeights(raw map[string]float64) (Weights, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	// Lower-case keys sort after mixed-case ones and therefore apply last.
	sort.Strings(keys)

	w := make(Weights, len(raw))
	for _, k := range keys {
		p, err := model.ParsePlatform(k)
		if err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
		v := raw[k]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("weights: %s: invalid weight %v", k, v)
		}
		if _, dup := w[p]; dup && k != strings.ToLower(k) {
			continue
		}
		w[p] = v
	}
	return w, nil
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// Normalized reports whether the weights sum to 1 within a small tolerance.
// A non-unit sum is allowed but should be flagged to operators.
func (w Weights) Normalized() bool {
	return math.Abs(w.Sum()-1) < 1e-9
}
