// Package scoring ranks normalized products by expected profitability.
// V1 is a fast deterministic formula; V2 blends deterministic sub-scores
// with an optional external AI judgment and degrades to the deterministic
// blend when the AI provider is unavailable.
package scoring

import (
	"math"

	"github.com/offerscout/offerscout/internal/models"
)

// V1Result is the outcome of the deterministic formula. It never carries an
// error value: unexpected input yields a zero score plus an explanation.
type V1Result struct {
	Score   float64
	Version string
	Err     string
}

// ScoreV1 computes commission * temperature / price, rounded to two
// decimals. Zero price means zero profitability, never a division error.
func ScoreV1(p models.NormalizedProduct) V1Result {
	if math.IsNaN(p.Price) || math.IsNaN(p.Commission) || math.IsNaN(p.Temperature) ||
		p.Price < 0 || p.Commission < 0 || p.Temperature < 0 {
		return V1Result{Score: 0, Version: models.ScoreVersionV1, Err: "invalid numeric input"}
	}

	if p.Price == 0 {
		return V1Result{Score: 0, Version: models.ScoreVersionV1}
	}

	raw := p.Commission * p.Temperature / p.Price
	if math.IsInf(raw, 0) || math.IsNaN(raw) {
		return V1Result{Score: 0, Version: models.ScoreVersionV1, Err: "score overflow"}
	}

	return V1Result{Score: round2(raw), Version: models.ScoreVersionV1}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
