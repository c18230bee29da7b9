package matching

import (
	"sort"

	"carpool/internal/config"
)

// Ranker scores surviving pairs; lower is better.
type Ranker struct {
	DetourWeight  float64
	OverlapWeight float64
}

func NewRanker(cfg config.MatchingConfig) Ranker {
	return Ranker{DetourWeight: cfg.DetourWeight, OverlapWeight: cfg.OverlapWeight}
}

// Score is detourWeight*detour - overlapWeight*overlap.
func (r Ranker) Score(detourMinutes, overlapMinutes float64) float64 {
	return r.DetourWeight*detourMinutes - r.OverlapWeight*overlapMinutes
}

// Rank fills in each pair's score and sorts ascending. Ties keep input order.
func (r Ranker) Rank(pairs []Pair) []Pair {
	for i := range pairs {
		pairs[i].Score = r.Score(pairs[i].DetourMinutes, float64(pairs[i].Overlap.Minutes))
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Score < pairs[j].Score })
	return pairs
}
