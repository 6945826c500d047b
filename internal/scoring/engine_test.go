package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerscout/offerscout/internal/models"
)

// stubJudge counts calls and either returns a fixed score or an error.
type stubJudge struct {
	score float64
	err   error
	calls atomic.Int64
}

func (s *stubJudge) Judge(_ context.Context, _ models.NormalizedProduct) (float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return 0, s.err
	}
	return s.score, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScoreProductEnhancedWithAI(t *testing.T) {
	judge := &stubJudge{score: 0.9}
	engine := NewEngine(judge, testLogger())

	scored := engine.ScoreProductEnhanced(context.Background(), product(97, 48, 80))

	assert.Equal(t, models.ScoreVersionV2AI, scored.ScoreVersion)
	assert.Equal(t, 0.9, scored.ScoreBreakdown["ai_judgment"])
	assert.NotEmpty(t, scored.Grade)
	assert.GreaterOrEqual(t, scored.ProfitabilityScore, 0.0)
	assert.LessOrEqual(t, scored.ProfitabilityScore, 1.0)
	assert.Equal(t, int64(1), judge.calls.Load())
}

func TestScoreProductEnhancedFallsBackOnAIFailure(t *testing.T) {
	failing := &stubJudge{err: errors.New("provider down")}
	engine := NewEngine(failing, testLogger())
	p := product(97, 48, 80)

	scored := engine.ScoreProductEnhanced(context.Background(), p)

	require.Equal(t, models.ScoreVersionV1Fallback, scored.ScoreVersion)
	_, hasAI := scored.ScoreBreakdown["ai_judgment"]
	assert.False(t, hasAI)

	// The fallback score must equal the independently computed blend.
	blind := NewEngine(nil, testLogger())
	expected := blind.ScoreProductEnhanced(context.Background(), p)
	assert.Equal(t, expected.ProfitabilityScore, scored.ProfitabilityScore)
}

func TestScoreProductEnhancedWithoutJudge(t *testing.T) {
	engine := NewEngine(nil, testLogger())

	scored := engine.ScoreProductEnhanced(context.Background(), product(97, 48, 80))

	assert.Equal(t, models.ScoreVersionV1Fallback, scored.ScoreVersion)
	assert.True(t, scored.Fallback())
}

func TestScoreEnhancedCachesByAttributes(t *testing.T) {
	judge := &stubJudge{score: 0.7}
	engine := NewEngine(judge, testLogger())
	p := product(97, 48, 80)

	first := engine.ScoreProductEnhanced(context.Background(), p)
	second := engine.ScoreProductEnhanced(context.Background(), p)

	assert.Equal(t, first.ProfitabilityScore, second.ProfitabilityScore)
	assert.Equal(t, int64(1), judge.calls.Load(), "identical attributes must not re-trigger the AI call")
	assert.Equal(t, 1, engine.Stats().CacheSize)
}

func TestBatchScoreWithoutAINeverCallsJudge(t *testing.T) {
	judge := &stubJudge{score: 0.9}
	engine := NewEngine(judge, testLogger())

	products := []models.NormalizedProduct{
		product(97, 48, 80),
		product(197, 30, 20),
		product(47, 20, 120),
	}

	scored := engine.BatchScore(context.Background(), products, BatchOptions{UseAI: false})

	require.Len(t, scored, 3)
	assert.Equal(t, int64(0), judge.calls.Load())
	for _, s := range scored {
		assert.Equal(t, models.ScoreVersionV1Fallback, s.ScoreVersion)
	}
}

func TestBatchScoreSortsDescending(t *testing.T) {
	engine := NewEngine(nil, testLogger())

	products := []models.NormalizedProduct{
		product(5000, 1, 1),  // weak
		product(97, 48, 120), // strong
		product(297, 60, 50), // middle
	}

	scored := engine.BatchScore(context.Background(), products, BatchOptions{})

	require.Len(t, scored, 3)
	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].ProfitabilityScore, scored[i].ProfitabilityScore)
	}
}

func TestBatchScoreParallelMatchesSequential(t *testing.T) {
	products := []models.NormalizedProduct{
		product(97, 48, 80),
		product(197, 30, 20),
		product(47, 20, 120),
		product(997, 400, 5),
	}

	seq := NewEngine(nil, testLogger()).BatchScore(context.Background(), products, BatchOptions{})
	par := NewEngine(nil, testLogger()).BatchScore(context.Background(), products, BatchOptions{Parallel: true})

	require.Equal(t, len(seq), len(par))
	for i := range seq {
		assert.Equal(t, seq[i].ProfitabilityScore, par[i].ProfitabilityScore)
	}
}

func TestBatchScoreOneBadProductDoesNotAbort(t *testing.T) {
	engine := NewEngine(&stubJudge{err: errors.New("boom")}, testLogger())

	products := []models.NormalizedProduct{
		product(97, 48, 80),
		product(0, 0, 0), // degenerate
	}

	scored := engine.BatchScore(context.Background(), products, BatchOptions{UseAI: true})

	require.Len(t, scored, 2)
	for _, s := range scored {
		assert.Equal(t, models.ScoreVersionV1Fallback, s.ScoreVersion)
	}
}

func TestGradeThresholds(t *testing.T) {
	engine := NewEngine(nil, testLogger())

	tests := []struct {
		score float64
		grade string
	}{
		{0.90, "A+"},
		{0.80, "A"},
		{0.65, "B"},
		{0.50, "C"},
		{0.20, "D"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.grade, engine.gradeFor(tt.score), "score %.2f", tt.score)
	}
}

func TestSubScoresStayNormalized(t *testing.T) {
	engine := NewEngine(nil, testLogger())

	inputs := []models.NormalizedProduct{
		product(0, 0, 0),
		product(97, 48, 80),
		product(10000, 9999, 500),
		{Name: "sem preço", Platform: "hotmart", Temperature: 1},
	}

	for _, p := range inputs {
		for name, v := range engine.subScores(p) {
			assert.GreaterOrEqual(t, v, 0.0, "%s went negative", name)
			assert.LessOrEqual(t, v, 1.0, "%s exceeded 1", name)
		}
	}
}

func TestStats(t *testing.T) {
	engine := NewEngine(nil, testLogger())
	stats := engine.Stats()

	assert.Equal(t, 0, stats.CacheSize)
	assert.Equal(t, DefaultWeights(), stats.Weights)
	assert.Equal(t, DefaultThresholds(), stats.Thresholds)
}
