package models

import "time"

// RawProductRecord holds the platform-native text captured for a single
// product card during one extraction pass. Fields are raw strings exactly as
// they appeared in the DOM; normalization happens one layer up.
type RawProductRecord struct {
	Name            string `json:"name"`
	PriceText       string `json:"price_text"`
	CommissionText  string `json:"commission_text"`
	TemperatureText string `json:"temperature_text"`
	Category        string `json:"category"`
	ProductURL      string `json:"product_url"`
	ImageURL        string `json:"image_url"`
}

// NormalizedProduct is the typed projection of a RawProductRecord. It is
// never mutated after creation; scoring attaches its fields to a copy.
type NormalizedProduct struct {
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	Commission    float64   `json:"commission"`
	Temperature   float64   `json:"temperature"`
	Category      string    `json:"category,omitempty"`
	ProductURL    string    `json:"product_url"`
	ImageURL      string    `json:"image_url,omitempty"`
	Platform      string    `json:"platform"`
	MarketplaceID string    `json:"marketplace_id,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// Score versions attached to a ScoredProduct.
const (
	ScoreVersionV1         = "V1"
	ScoreVersionV2AI       = "V2-AI"
	ScoreVersionV1Fallback = "V1-Fallback"
)

// ScoredProduct is a NormalizedProduct plus the profitability verdict.
type ScoredProduct struct {
	NormalizedProduct

	ProfitabilityScore float64            `json:"profitability_score"`
	ScoreVersion       string             `json:"score_version"`
	Grade              string             `json:"grade,omitempty"`
	ScoreBreakdown     map[string]float64 `json:"score_breakdown,omitempty"`
	ScoreError         string             `json:"score_error,omitempty"`
}

// Valid reports whether the product carries the two fields every downstream
// consumer requires. Records failing this are dropped before emission.
func (p *NormalizedProduct) Valid() bool {
	return p.Name != "" && p.ProductURL != ""
}

// Fallback reports whether the score was produced without an AI judgment.
func (p *ScoredProduct) Fallback() bool {
	return p.ScoreVersion == ScoreVersionV1Fallback
}
