package scoring

import (
	"sort"

	"github.com/offerscout/offerscout/internal/models"
)

// TopN returns the n highest-scoring products. The input is not mutated.
func TopN(scored []models.ScoredProduct, n int) []models.ScoredProduct {
	if n <= 0 {
		return nil
	}

	out := make([]models.ScoredProduct, len(scored))
	copy(out, scored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitabilityScore > out[j].ProfitabilityScore
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// FilterMinScore keeps products scoring at least min.
func FilterMinScore(scored []models.ScoredProduct, min float64) []models.ScoredProduct {
	var out []models.ScoredProduct
	for _, p := range scored {
		if p.ProfitabilityScore >= min {
			out = append(out, p)
		}
	}
	return out
}

// FilterGrade keeps products whose grade is in the accepted set.
func FilterGrade(scored []models.ScoredProduct, grades ...string) []models.ScoredProduct {
	accepted := make(map[string]struct{}, len(grades))
	for _, g := range grades {
		accepted[g] = struct{}{}
	}

	var out []models.ScoredProduct
	for _, p := range scored {
		if _, ok := accepted[p.Grade]; ok {
			out = append(out, p)
		}
	}
	return out
}
