// Package selectors holds per-platform CSS selector sets and the discovery
// algorithm that picks a working candidate against a live DOM. Marketplace
// front-ends rename CSS classes often; an ordered candidate list per logical
// field survives those deploys without code changes.
package selectors

// Logical field names resolved per platform.
const (
	FieldCard        = "card"
	FieldName        = "name"
	FieldPrice       = "price"
	FieldCommission  = "commission"
	FieldImage       = "image"
	FieldLink        = "link"
	FieldCategory    = "category"
	FieldTemperature = "temperature"
)

// SelectorSet maps a logical field to its primary selector plus ordered
// fallback candidates. Read-only static configuration.
type SelectorSet struct {
	Platform     string
	Primary      map[string]string
	Alternatives map[string][]string
}

// Candidates returns the ordered candidate list for a field: primary first,
// then every alternative. Empty slice when the field is unknown.
func (s SelectorSet) Candidates(field string) []string {
	var out []string
	if primary, ok := s.Primary[field]; ok && primary != "" {
		out = append(out, primary)
	}
	out = append(out, s.Alternatives[field]...)
	return out
}

var defaultSet = SelectorSet{
	Platform: "default",
	Primary: map[string]string{
		FieldCard:        `[class*="product-card"]`,
		FieldName:        `[class*="product-name"]`,
		FieldPrice:       `[class*="price"]`,
		FieldCommission:  `[class*="commission"]`,
		FieldImage:       `img`,
		FieldLink:        `a`,
		FieldCategory:    `[class*="category"]`,
		FieldTemperature: `[class*="temperature"]`,
	},
	Alternatives: map[string][]string{
		FieldCard: {`[class*="product-item"]`, `[class*="card"]`, `article`, `li[class*="item"]`},
		FieldName: {`h2`, `h3`, `[class*="title"]`, `[class*="name"]`},
		FieldPrice: {`[class*="valor"]`, `[class*="amount"]`, `[data-testid*="price"]`},
		FieldCommission: {`[class*="comissao"]`, `[class*="earn"]`},
		FieldImage: {`[class*="thumb"] img`, `picture img`},
		FieldLink: {`a[href*="product"]`, `a[href*="item"]`},
		FieldCategory: {`[class*="categoria"]`, `[class*="niche"]`, `[class*="tag"]`},
		FieldTemperature: {`[class*="heat"]`, `[class*="gravity"]`, `[class*="temp"]`},
	},
}

var platformSets = map[string]SelectorSet{
	"hotmart": {
		Platform: "hotmart",
		Primary: map[string]string{
			FieldCard:        `[data-testid="product-card"]`,
			FieldName:        `[data-testid="product-name"]`,
			FieldPrice:       `[class*="price"]`,
			FieldCommission:  `[class*="commission"]`,
			FieldImage:       `img[class*="product"]`,
			FieldLink:        `a[href*="/product/"]`,
			FieldCategory:    `[class*="category"]`,
			FieldTemperature: `[class*="temperature"]`,
		},
		Alternatives: map[string][]string{
			FieldCard: {`.product-card`, `[class*="hot-product"]`, `[class*="MarketplaceCard"]`, `article[class*="card"]`},
			FieldName: {`.product-card h3`, `[class*="product-title"]`, `h2`, `h3`},
			FieldPrice: {`[class*="product-price"]`, `[class*="valor"]`, `span[class*="Price"]`},
			FieldCommission: {`[class*="comissao"]`, `[class*="max-commission"]`, `[class*="earn"]`},
			FieldImage: {`picture img`, `img`},
			FieldLink: {`a[href*="hotmart.com"]`, `a`},
			FieldCategory: {`[class*="categoria"]`, `[class*="Badge"]`},
			FieldTemperature: {`[class*="temp"]`, `[class*="heat"]`, `[aria-label*="temperatura"]`},
		},
	},
	"kiwify": {
		Platform: "kiwify",
		Primary: map[string]string{
			FieldCard:        `[class*="product-card"]`,
			FieldName:        `[class*="product-name"]`,
			FieldPrice:       `[class*="price"]`,
			FieldCommission:  `[class*="commission"]`,
			FieldImage:       `img`,
			FieldLink:        `a[href*="/product"]`,
			FieldCategory:    `[class*="category"]`,
			FieldTemperature: `[class*="score"]`,
		},
		Alternatives: map[string][]string{
			FieldCard:       {`[class*="marketplace-item"]`, `[class*="card"]`, `article`},
			FieldName:       {`h3`, `[class*="title"]`},
			FieldPrice:      {`[class*="valor"]`, `[class*="amount"]`},
			FieldCommission: {`[class*="comissao"]`},
			FieldLink:       {`a`},
		},
	},
	"clickbank": {
		Platform: "clickbank",
		Primary: map[string]string{
			FieldCard:        `[class*="result-row"]`,
			FieldName:        `[class*="product-title"]`,
			FieldPrice:       `[class*="price"]`,
			FieldCommission:  `[class*="commission"]`,
			FieldImage:       `img`,
			FieldLink:        `a[href*="marketplace"]`,
			FieldCategory:    `[class*="category"]`,
			FieldTemperature: `[class*="gravity"]`,
		},
		Alternatives: map[string][]string{
			FieldCard:        {`[class*="listing"]`, `[class*="offer-card"]`, `tr[class*="result"]`},
			FieldName:        {`h4`, `h3`, `[class*="title"]`},
			FieldPrice:       {`[class*="initial-sale"]`, `[class*="avg"]`},
			FieldCommission:  {`[class*="avg-commission"]`, `[class*="earn"]`},
			FieldLink:        {`a`},
			FieldTemperature: {`[class*="grav"]`, `[data-stat="gravity"]`},
		},
	},
	"eduzz": {
		Platform: "eduzz",
		Primary: map[string]string{
			FieldCard:        `[class*="product-card"]`,
			FieldName:        `[class*="product-title"]`,
			FieldPrice:       `[class*="price"]`,
			FieldCommission:  `[class*="commission"]`,
			FieldImage:       `img`,
			FieldLink:        `a[href*="/afiliado"]`,
			FieldCategory:    `[class*="category"]`,
			FieldTemperature: `[class*="ranking"]`,
		},
		Alternatives: map[string][]string{
			FieldCard:       {`[class*="card-produto"]`, `[class*="item"]`},
			FieldName:       {`h3`, `[class*="titulo"]`},
			FieldPrice:      {`[class*="valor"]`},
			FieldCommission: {`[class*="comissao"]`},
			FieldLink:       {`a`},
		},
	},
	"monetizze": {
		Platform: "monetizze",
		Primary: map[string]string{
			FieldCard:        `[class*="produto-card"]`,
			FieldName:        `[class*="produto-nome"]`,
			FieldPrice:       `[class*="preco"]`,
			FieldCommission:  `[class*="comissao"]`,
			FieldImage:       `img`,
			FieldLink:        `a[href*="/produto"]`,
			FieldCategory:    `[class*="categoria"]`,
			FieldTemperature: `[class*="termometro"]`,
		},
		Alternatives: map[string][]string{
			FieldCard:       {`[class*="card"]`, `[class*="product"]`},
			FieldName:       {`h3`, `[class*="title"]`},
			FieldPrice:      {`[class*="price"]`, `[class*="valor"]`},
			FieldCommission: {`[class*="commission"]`},
			FieldLink:       {`a`},
		},
	},
}

// ForPlatform returns the selector set for a platform, or a generic default
// when the platform is unrecognized. Never fails.
func ForPlatform(platform string) SelectorSet {
	if set, ok := platformSets[platform]; ok {
		return set
	}
	return defaultSet
}
