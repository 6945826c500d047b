package scoring

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/offerscout/offerscout/internal/models"
)

// Weights blend the V2 sub-scores. The five deterministic weights sum to 1;
// AIBlend is the share the external judgment takes of the final score when
// an AI call succeeds.
type Weights struct {
	Base                     float64 `json:"base"`
	PriceOptimization        float64 `json:"price_optimization"`
	MarketDemand             float64 `json:"market_demand"`
	NicheCompetitiveness     float64 `json:"niche_competitiveness"`
	CommissionSustainability float64 `json:"commission_sustainability"`
	AIBlend                  float64 `json:"ai_blend"`
}

func DefaultWeights() Weights {
	return Weights{
		Base:                     0.30,
		PriceOptimization:        0.15,
		MarketDemand:             0.25,
		NicheCompetitiveness:     0.10,
		CommissionSustainability: 0.20,
		AIBlend:                  0.30,
	}
}

// Thresholds hold the empirical cutoffs behind the sub-scores and grades.
type Thresholds struct {
	PriceSweetSpotMin float64 `json:"price_sweet_spot_min"`
	PriceSweetSpotMax float64 `json:"price_sweet_spot_max"`
	TemperatureHot    float64 `json:"temperature_hot"`
	TemperatureWarm   float64 `json:"temperature_warm"`
	TemperatureMild   float64 `json:"temperature_mild"`
	TemperatureCool   float64 `json:"temperature_cool"`
	GradeAPlus        float64 `json:"grade_a_plus"`
	GradeA            float64 `json:"grade_a"`
	GradeB            float64 `json:"grade_b"`
	GradeC            float64 `json:"grade_c"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		PriceSweetSpotMin: 47,
		PriceSweetSpotMax: 297,
		TemperatureHot:    100,
		TemperatureWarm:   50,
		TemperatureMild:   20,
		TemperatureCool:   10,
		GradeAPlus:        0.85,
		GradeA:            0.75,
		GradeB:            0.60,
		GradeC:            0.45,
	}
}

// Stats is the engine's introspection surface.
type Stats struct {
	CacheSize  int        `json:"cache_size"`
	Weights    Weights    `json:"weights"`
	Thresholds Thresholds `json:"thresholds"`
}

// BatchOptions control a batch-scoring run. Sequential processing is the
// default to respect AI-provider rate limits.
type BatchOptions struct {
	UseAI    bool
	Parallel bool
}

// Engine computes V1 and V2 scores. Safe for concurrent use.
type Engine struct {
	weights    Weights
	thresholds Thresholds
	judge      Judge
	cache      *resultCache
	logger     *slog.Logger
}

// NewEngine builds a scoring engine. judge may be nil, in which case every
// V2 result is the deterministic blend marked as a fallback.
func NewEngine(judge Judge, logger *slog.Logger) *Engine {
	return &Engine{
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		judge:      judge,
		cache:      newResultCache(30 * time.Minute),
		logger:     logger.With("component", "scoring"),
	}
}

// ScoreProductV1 attaches the deterministic score to a copy of the product.
func (e *Engine) ScoreProductV1(p models.NormalizedProduct) models.ScoredProduct {
	res := ScoreV1(p)
	return models.ScoredProduct{
		NormalizedProduct:  p,
		ProfitabilityScore: res.Score,
		ScoreVersion:       res.Version,
		ScoreError:         res.Err,
	}
}

// ScoreProductEnhanced computes the V2 blended score, consulting the AI
// judge when one is configured. AI failure downgrades to the deterministic
// blend and marks the result V1-Fallback; it never returns an error.
func (e *Engine) ScoreProductEnhanced(ctx context.Context, p models.NormalizedProduct) models.ScoredProduct {
	return e.scoreEnhanced(ctx, p, e.judge != nil)
}

func (e *Engine) scoreEnhanced(ctx context.Context, p models.NormalizedProduct, useAI bool) models.ScoredProduct {
	useAI = useAI && e.judge != nil

	key := cacheKey(p, useAI)
	if cached, ok := e.cache.get(key); ok {
		return cached
	}

	breakdown := e.subScores(p)
	deterministic := e.weights.Base*breakdown["base"] +
		e.weights.PriceOptimization*breakdown["price_optimization"] +
		e.weights.MarketDemand*breakdown["market_demand"] +
		e.weights.NicheCompetitiveness*breakdown["niche_competitiveness"] +
		e.weights.CommissionSustainability*breakdown["commission_sustainability"]

	final := deterministic
	version := models.ScoreVersionV1Fallback

	if useAI {
		aiScore, err := e.judge.Judge(ctx, p)
		if err != nil {
			e.logger.Warn("AI judgment unavailable, using deterministic blend",
				"product", p.Name, "error", err)
		} else {
			breakdown["ai_judgment"] = aiScore
			final = (1-e.weights.AIBlend)*deterministic + e.weights.AIBlend*aiScore
			version = models.ScoreVersionV2AI
		}
	}

	final = round2(clamp01(final))

	scored := models.ScoredProduct{
		NormalizedProduct:  p,
		ProfitabilityScore: final,
		ScoreVersion:       version,
		Grade:              e.gradeFor(final),
		ScoreBreakdown:     breakdown,
	}

	e.cache.set(key, scored)
	return scored
}

// BatchScore scores a list of products, each independently falling back on
// its own failure, and returns them sorted by descending score.
func (e *Engine) BatchScore(ctx context.Context, products []models.NormalizedProduct, opts BatchOptions) []models.ScoredProduct {
	scored := make([]models.ScoredProduct, len(products))

	if opts.Parallel {
		var wg sync.WaitGroup
		for i, p := range products {
			wg.Add(1)
			go func(i int, p models.NormalizedProduct) {
				defer wg.Done()
				scored[i] = e.scoreEnhanced(ctx, p, opts.UseAI)
			}(i, p)
		}
		wg.Wait()
	} else {
		for i, p := range products {
			scored[i] = e.scoreEnhanced(ctx, p, opts.UseAI)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].ProfitabilityScore > scored[j].ProfitabilityScore
	})

	return scored
}

func (e *Engine) Stats() Stats {
	return Stats{
		CacheSize:  e.cache.size(),
		Weights:    e.weights,
		Thresholds: e.thresholds,
	}
}

// subScores computes the deterministic V2 components, each in [0,1].
func (e *Engine) subScores(p models.NormalizedProduct) map[string]float64 {
	return map[string]float64{
		"base":                      e.baseScore(p),
		"price_optimization":        e.priceOptimizationScore(p.Price),
		"market_demand":             e.marketDemandScore(p.Temperature),
		"niche_competitiveness":     nicheCompetitivenessScore(p.Category),
		"commission_sustainability": commissionSustainabilityScore(p.Commission, p.Price),
	}
}

// baseScore squashes the unbounded V1 formula into [0,1).
func (e *Engine) baseScore(p models.NormalizedProduct) float64 {
	raw := ScoreV1(p).Score
	if raw <= 0 {
		return 0
	}
	return raw / (raw + 10)
}

// priceOptimizationScore rewards prices in the empirical sweet-spot range;
// extremes convert worse or pay too little to be worth the traffic.
func (e *Engine) priceOptimizationScore(price float64) float64 {
	min, max := e.thresholds.PriceSweetSpotMin, e.thresholds.PriceSweetSpotMax
	switch {
	case price <= 0:
		return 0
	case price < min:
		return clamp01(price / min)
	case price <= max:
		return 1
	default:
		return clamp01(max / price)
	}
}

func (e *Engine) marketDemandScore(temperature float64) float64 {
	t := e.thresholds
	switch {
	case temperature >= t.TemperatureHot:
		return 1.0
	case temperature >= t.TemperatureWarm:
		return 0.8
	case temperature >= t.TemperatureMild:
		return 0.6
	case temperature >= t.TemperatureCool:
		return 0.4
	case temperature > 1:
		return 0.25
	default:
		return 0.1
	}
}

// saturatedNiches convert poorly for newcomers; evergreenNiches hold steady
// demand with moderate competition.
var (
	saturatedNiches = []string{"emagrecimento", "weight loss", "ganhar dinheiro", "make money", "apostas", "betting", "cripto", "crypto"}
	evergreenNiches = []string{"idiomas", "language", "finanças", "finance", "marketing", "saúde", "health", "educação", "education"}
)

func nicheCompetitivenessScore(category string) float64 {
	if category == "" {
		return 0.5
	}

	lower := strings.ToLower(category)
	for _, niche := range saturatedNiches {
		if strings.Contains(lower, niche) {
			return 0.3
		}
	}
	for _, niche := range evergreenNiches {
		if strings.Contains(lower, niche) {
			return 0.6
		}
	}
	return 0.5
}

// commissionSustainabilityScore penalizes commissions implausibly high
// relative to price, a common fraud/churn signal on affiliate marketplaces.
func commissionSustainabilityScore(commission, price float64) float64 {
	if price <= 0 || commission <= 0 {
		return 0
	}

	ratio := commission / price
	switch {
	case ratio > 1.0:
		return 0.1
	case ratio > 0.8:
		return 0.4
	case ratio > 0.6:
		return 0.7
	case ratio >= 0.2:
		return 1.0
	case ratio >= 0.05:
		return 0.6
	default:
		return 0.2
	}
}

func (e *Engine) gradeFor(score float64) string {
	t := e.thresholds
	switch {
	case score >= t.GradeAPlus:
		return "A+"
	case score >= t.GradeA:
		return "A"
	case score >= t.GradeB:
		return "B"
	case score >= t.GradeC:
		return "C"
	default:
		return "D"
	}
}
