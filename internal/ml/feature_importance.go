package ml

import (
	"math/rand"
	"sort"

	"github.com/krnkaavya03/StuPred/internal/schema"
)

// FeatureRank pairs a feature with an importance score.
type FeatureRank struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// RankFeatures orders importances from most to least important. Ties keep
// schema order.
func RankFeatures(importance map[string]float64) []FeatureRank {
	ranks := make([]FeatureRank, 0, len(importance))
	for _, f := range schema.Features {
		if v, ok := importance[f.String()]; ok {
			ranks = append(ranks, FeatureRank{Name: f.String(), Importance: v})
		}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Importance > ranks[j].Importance
	})
	return ranks
}

// TopFeatures returns the names of the n most important features.
func TopFeatures(importance map[string]float64, n int) []string {
	ranks := RankFeatures(importance)
	if n > len(ranks) {
		n = len(ranks)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = ranks[i].Name
	}
	return names
}

// PermutationImportance measures how much accuracy on (x, y) drops when one
// feature's column is shuffled. Negative drops are reported as zero.
func PermutationImportance(m *Model, x []schema.FeatureVector, y []int, rng *rand.Rand) map[string]float64 {
	out := make(map[string]float64, schema.NumFeatures)
	if len(x) == 0 {
		for _, f := range schema.Features {
			out[f.String()] = 0
		}
		return out
	}

	baseline := m.accuracy(x, y)
	permuted := make([]schema.FeatureVector, len(x))
	for _, f := range schema.Features {
		copy(permuted, x)
		perm := rng.Perm(len(x))
		for i, j := range perm {
			permuted[i][f] = x[j][f]
		}
		drop := baseline - m.accuracy(permuted, y)
		out[f.String()] = max(0, drop)
	}
	return out
}
