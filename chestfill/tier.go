package chestfill

import (
	"github.com/hollowforge/survivalgames/types"
)

// Weights holds the per-tier weights for the weighted-random draw. They do
// not need to sum to 100, only to be non-negative with a positive total.
type Weights [3]int

// DefaultWeights is the stock 70/25/5 split across common/uncommon/rare.
var DefaultWeights = Weights{70, 25, 5}

func (w Weights) total() int {
	return w[0] + w[1] + w[2]
}

// draw maps one random roll in [0, total) onto a tier by cumulative-weight
// scan.
func (w Weights) draw(roll int) types.Tier {
	cumulative := 0
	for i, weight := range w {
		cumulative += weight
		if roll < cumulative {
			return types.Tier(i)
		}
	}
	return types.TierCommon
}
