// Package normalize converts raw scraped text into typed product fields.
// Scraped text is unpredictable, so every parser returns a safe default
// instead of an error; usability validation happens one layer up.
package normalize

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/offerscout/offerscout/internal/models"
)

var (
	numericRunRe = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	percentRe    = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)
)

// ParsePrice extracts a price from marketplace text such as "R$ 1.234,56" or
// "$1,234.56". When the cleaned string ends in a comma-decimal it is treated
// as Brazilian/European notation (periods are thousand separators); otherwise
// US notation applies. Returns 0 when no number is present.
//
// "1.234" stays ambiguous between locales; the comma/period heuristic keeps
// the US reading for compatibility with existing stored data.
func ParsePrice(text string) float64 {
	run := numericRunRe.FindString(text)
	if run == "" {
		return 0
	}

	lastComma := strings.LastIndex(run, ",")
	lastDot := strings.LastIndex(run, ".")

	if lastComma >= 0 && lastComma > lastDot {
		run = strings.ReplaceAll(run, ".", "")
		run = strings.Replace(run, ",", ".", 1)
	} else {
		run = strings.ReplaceAll(run, ",", "")
	}

	val, err := strconv.ParseFloat(run, 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

// ParseCommission turns commission text into an absolute currency amount.
// "50%" against a price yields price*0.5; anything else is parsed as an
// absolute amount with the same locale heuristic as ParsePrice.
func ParseCommission(text string, price float64) float64 {
	if text == "" {
		return 0
	}

	if matches := percentRe.FindStringSubmatch(text); len(matches) > 1 {
		pct, err := strconv.ParseFloat(strings.Replace(matches[1], ",", ".", 1), 64)
		if err != nil {
			return 0
		}
		return round2(price * pct / 100)
	}

	return ParsePrice(text)
}

// ParseTemperature extracts the platform heat/gravity metric. Absent or
// unparseable input defaults to 1, a neutral multiplier, so a missing metric
// does not zero out the profitability formula.
func ParseTemperature(text string) float64 {
	run := numericRunRe.FindString(text)
	if run == "" {
		return 1
	}

	run = strings.ReplaceAll(run, ",", ".")
	// Collapse accidental multi-dot runs ("1.234.5") to the first group.
	if first := strings.Index(run, "."); first >= 0 {
		if second := strings.Index(run[first+1:], "."); second >= 0 {
			run = run[:first+1+second]
		}
	}

	val, err := strconv.ParseFloat(run, 64)
	if err != nil || val <= 0 {
		return 1
	}
	return val
}

// NormalizeURL resolves scraped link targets to absolute URLs. Absolute URLs
// pass through, protocol-relative URLs get https, root-relative URLs resolve
// against the origin of baseURL. Empty input returns "".
func NormalizeURL(raw, baseURL string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}

// FromRaw converts a raw record into a NormalizedProduct. The second return
// is false when the record is unusable (missing name or resolvable URL).
func FromRaw(raw models.RawProductRecord, platform, baseURL, marketplaceID string) (models.NormalizedProduct, bool) {
	price := ParsePrice(raw.PriceText)

	product := models.NormalizedProduct{
		Name:          strings.TrimSpace(raw.Name),
		Price:         price,
		Currency:      currencyFor(raw.PriceText, platform),
		Commission:    ParseCommission(raw.CommissionText, price),
		Temperature:   ParseTemperature(raw.TemperatureText),
		Category:      strings.TrimSpace(raw.Category),
		ProductURL:    NormalizeURL(raw.ProductURL, baseURL),
		ImageURL:      NormalizeURL(raw.ImageURL, baseURL),
		Platform:      platform,
		MarketplaceID: marketplaceID,
		ScrapedAt:     time.Now(),
	}

	return product, product.Valid()
}

func currencyFor(priceText, platform string) string {
	switch {
	case strings.Contains(priceText, "R$"):
		return "BRL"
	case strings.Contains(priceText, "€"):
		return "EUR"
	case strings.Contains(priceText, "£"):
		return "GBP"
	case strings.Contains(priceText, "$"):
		return "USD"
	}

	switch platform {
	case "hotmart", "kiwify", "eduzz", "monetizze":
		return "BRL"
	default:
		return "USD"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
