package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offerscout/offerscout/internal/models"
)

func scoredFixture() []models.ScoredProduct {
	return []models.ScoredProduct{
		{NormalizedProduct: models.NormalizedProduct{Name: "c"}, ProfitabilityScore: 0.50, Grade: "C"},
		{NormalizedProduct: models.NormalizedProduct{Name: "a"}, ProfitabilityScore: 0.91, Grade: "A+"},
		{NormalizedProduct: models.NormalizedProduct{Name: "b"}, ProfitabilityScore: 0.78, Grade: "A"},
		{NormalizedProduct: models.NormalizedProduct{Name: "d"}, ProfitabilityScore: 0.12, Grade: "D"},
	}
}

func TestTopN(t *testing.T) {
	top := TopN(scoredFixture(), 2)

	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Name)
	assert.Equal(t, "b", top[1].Name)
}

func TestTopNBounds(t *testing.T) {
	assert.Nil(t, TopN(scoredFixture(), 0))
	assert.Len(t, TopN(scoredFixture(), 99), 4)
}

func TestFilterMinScore(t *testing.T) {
	kept := FilterMinScore(scoredFixture(), 0.75)

	require.Len(t, kept, 2)
	for _, p := range kept {
		assert.GreaterOrEqual(t, p.ProfitabilityScore, 0.75)
	}
}

func TestFilterGrade(t *testing.T) {
	kept := FilterGrade(scoredFixture(), "A+", "A")
	assert.Len(t, kept, 2)

	assert.Empty(t, FilterGrade(scoredFixture(), "F"))
}
