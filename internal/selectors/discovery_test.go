package selectors

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopeFor(t *testing.T, html string) GoqueryScope {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return NewGoqueryScope(doc)
}

func TestForPlatform(t *testing.T) {
	hotmart := ForPlatform("hotmart")
	assert.Equal(t, "hotmart", hotmart.Platform)
	assert.Equal(t, `[data-testid="product-card"]`, hotmart.Primary[FieldCard])

	unknown := ForPlatform("some-new-marketplace")
	assert.Equal(t, "default", unknown.Platform)
	assert.NotEmpty(t, unknown.Primary[FieldCard])
}

func TestFindWorkingSelectorPrefersPrimary(t *testing.T) {
	html := `<div>
		<div data-testid="product-card"><h3>A</h3></div>
		<div class="product-card"><h3>B</h3></div>
	</div>`

	sel := FindWorkingSelector(scopeFor(t, html), FieldCard, ForPlatform("hotmart"))
	assert.Equal(t, `[data-testid="product-card"]`, sel)
}

func TestFindWorkingSelectorFallsBack(t *testing.T) {
	html := `<div>
		<article class="card-wrapper hot-product-x"><h3>A</h3></article>
	</div>`

	sel := FindWorkingSelector(scopeFor(t, html), FieldCard, ForPlatform("hotmart"))
	assert.Equal(t, `[class*="hot-product"]`, sel)
}

func TestFindWorkingSelectorNoMatch(t *testing.T) {
	sel := FindWorkingSelector(scopeFor(t, `<p>nothing here</p>`), FieldCard, ForPlatform("hotmart"))
	assert.Equal(t, "", sel)
}

func TestDiscoverResolvesOptionalFields(t *testing.T) {
	html := `<main>
		<div data-testid="product-card">
			<h3 data-testid="product-name">Curso X</h3>
			<span class="price">R$ 97,00</span>
			<a href="/product/curso-x">ver</a>
		</div>
	</main>`

	resolved, err := Discover(scopeFor(t, html), ForPlatform("hotmart"))
	require.NoError(t, err)

	assert.Equal(t, `[data-testid="product-card"]`, resolved[FieldCard])
	assert.Equal(t, `[data-testid="product-name"]`, resolved[FieldName])
	assert.Equal(t, `[class*="price"]`, resolved[FieldPrice])
	assert.Equal(t, `a[href*="/product/"]`, resolved[FieldLink])

	// No commission markup on the page: optional field stays unresolved.
	_, ok := resolved[FieldCommission]
	assert.False(t, ok)
}

func TestDiscoverFailsWithoutCardContainer(t *testing.T) {
	_, err := Discover(scopeFor(t, `<p>empty marketplace</p>`), ForPlatform("kiwify"))
	assert.ErrorIs(t, err, ErrNoCardSelector)
}
