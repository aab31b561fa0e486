// Package priority converts the detections attached to one frame into a
// single orderable score. The score decides which frames survive a save
// cycle when capacity is limited.
package priority

import (
	"sync/atomic"

	"github.com/searchlight-sar/scanner/pkg/types"
)

// rankWeights maps a user-assigned category rank (1 = highest priority) to a
// score multiplier. Monotonically non-increasing.
var rankWeights = map[int]float64{
	1: 1.00,
	2: 0.95,
	3: 0.90,
	4: 0.80,
	5: 0.70,
	6: 0.60,
}

// defaultRank is applied to categories the operator has not ranked, so
// low-priority but real detections still compete on confidence alone.
const defaultRank = 1

// Weight returns the score multiplier for a rank. Unknown ranks get the
// default rank's weight.
func Weight(rank int) float64 {
	if w, ok := rankWeights[rank]; ok {
		return w
	}
	return rankWeights[defaultRank]
}

// Score sums confidence×weight over every detection in the frame. A frame
// with several detections outranks a single strong one; an empty detection
// list scores 0.
func Score(detections []types.Detection, ranks map[string]int) float64 {
	score := 0.0
	for _, det := range detections {
		rank, ok := ranks[det.Category]
		if !ok {
			rank = defaultRank
		}
		score += det.Confidence * Weight(rank)
	}
	return score
}

// Ranks holds the operator's category rank map behind an atomic snapshot
// swap, so config changes never tear a mid-cycle read.
type Ranks struct {
	snapshot atomic.Value // map[string]int, treated as immutable
}

// NewRanks creates a rank holder seeded with initial (may be nil).
func NewRanks(initial map[string]int) *Ranks {
	r := &Ranks{}
	r.Replace(initial)
	return r
}

// Replace swaps in a new rank map. The caller must not mutate m afterwards.
func (r *Ranks) Replace(m map[string]int) {
	if m == nil {
		m = map[string]int{}
	}
	r.snapshot.Store(m)
}

// Snapshot returns the current rank map. Read-only for the caller.
func (r *Ranks) Snapshot() map[string]int {
	return r.snapshot.Load().(map[string]int)
}
