// Package draw implements the weighted random reward draw
package draw

import "math/rand"

// Candidate is one entry in the draw pool
type Candidate struct {
	ID     int64
	Weight float64
}

// Multiplier converts a streak count into the weight multiplier 1 + streak/10
func Multiplier(streak int) float64 { return 1 + float64(streak)*0.1 }

// TotalWeight is the habit weight scaled by the streak multiplier
func TotalWeight(habitWeight int, streak int) float64 {
	return float64(habitWeight) * Multiplier(streak)
}

// Weighted draws an index from cands with probability proportional to
// Weight*scale via cumulative sums over a single uniform sample. Candidates
// with non-positive weight never win. Returns false when the pool is empty
// or carries no positive weight
func Weighted(rng *rand.Rand, cands []Candidate, scale float64) (int, bool) {
	if len(cands) == 0 || scale <= 0 {
		return 0, false
	}
	total := 0.0
	for _, c := range cands {
		if c.Weight > 0 {
			total += c.Weight * scale
		}
	}
	if total <= 0 {
		return 0, false
	}

	u := rng.Float64() * total
	acc := 0.0
	last := -1
	for i, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		acc += c.Weight * scale
		last = i
		if u < acc {
			return i, true
		}
	}
	// float accumulation can leave u a hair past the final boundary
	return last, true
}
