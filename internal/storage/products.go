package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/offerscout/offerscout/internal/models"
)

// schema is applied at startup. Products are keyed by (platform, product_url)
// so re-scraping a marketplace refreshes rows instead of duplicating them.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	platform            TEXT NOT NULL,
	product_url         TEXT NOT NULL,
	name                TEXT NOT NULL,
	price               DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency            TEXT NOT NULL DEFAULT '',
	commission          DOUBLE PRECISION NOT NULL DEFAULT 0,
	temperature         DOUBLE PRECISION NOT NULL DEFAULT 1,
	category            TEXT NOT NULL DEFAULT '',
	image_url           TEXT NOT NULL DEFAULT '',
	marketplace_id      TEXT NOT NULL DEFAULT '',
	profitability_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	score_version       TEXT NOT NULL DEFAULT '',
	grade               TEXT NOT NULL DEFAULT '',
	score_breakdown     JSONB,
	scraped_at          TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (platform, product_url)
);

CREATE INDEX IF NOT EXISTS idx_products_score ON products (profitability_score DESC);
CREATE INDEX IF NOT EXISTS idx_products_grade ON products (grade);
`

// EnsureSchema creates the products table if it does not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// UpsertProducts writes a batch of scored products in one transaction.
func (db *DB) UpsertProducts(ctx context.Context, products []models.ScoredProduct) error {
	if len(products) == 0 {
		return nil
	}

	query := `
		INSERT INTO products
			(platform, product_url, name, price, currency, commission, temperature,
			 category, image_url, marketplace_id,
			 profitability_score, score_version, grade, score_breakdown, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (platform, product_url) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			commission = EXCLUDED.commission,
			temperature = EXCLUDED.temperature,
			category = EXCLUDED.category,
			image_url = EXCLUDED.image_url,
			marketplace_id = EXCLUDED.marketplace_id,
			profitability_score = EXCLUDED.profitability_score,
			score_version = EXCLUDED.score_version,
			grade = EXCLUDED.grade,
			score_breakdown = EXCLUDED.score_breakdown,
			scraped_at = EXCLUDED.scraped_at,
			updated_at = NOW()`

	return db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range products {
			breakdown, err := marshalBreakdown(p.ScoreBreakdown)
			if err != nil {
				return err
			}

			scrapedAt := p.ScrapedAt
			if scrapedAt.IsZero() {
				scrapedAt = time.Now()
			}

			_, err = tx.Exec(ctx, query,
				p.Platform, p.ProductURL, p.Name, p.Price, p.Currency,
				p.Commission, p.Temperature, p.Category, p.ImageURL, p.MarketplaceID,
				p.ProfitabilityScore, p.ScoreVersion, p.Grade, breakdown, scrapedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert product %q: %w", p.ProductURL, err)
			}
		}
		return nil
	})
}

// TopProducts returns up to limit products ordered by score descending.
// An empty platform matches all platforms.
func (db *DB) TopProducts(ctx context.Context, limit int, platform string) ([]models.ScoredProduct, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT platform, product_url, name, price, currency, commission, temperature,
		       category, image_url, marketplace_id,
		       profitability_score, score_version, grade, score_breakdown, scraped_at
		FROM products
		WHERE ($1 = '' OR platform = $1)
		ORDER BY profitability_score DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	var products []models.ScoredProduct
	for rows.Next() {
		var p models.ScoredProduct
		var breakdown []byte
		err := rows.Scan(
			&p.Platform, &p.ProductURL, &p.Name, &p.Price, &p.Currency,
			&p.Commission, &p.Temperature, &p.Category, &p.ImageURL, &p.MarketplaceID,
			&p.ProfitabilityScore, &p.ScoreVersion, &p.Grade, &breakdown, &p.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if len(breakdown) > 0 {
			if err := json.Unmarshal(breakdown, &p.ScoreBreakdown); err != nil {
				return nil, fmt.Errorf("failed to decode score breakdown: %w", err)
			}
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// CountByGrade returns how many stored products carry each grade.
func (db *DB) CountByGrade(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT grade, COUNT(*) AS count
		FROM products
		GROUP BY grade`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var grade string
		var count int
		if err := rows.Scan(&grade, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[grade] = count
	}

	return counts, rows.Err()
}

func marshalBreakdown(breakdown map[string]float64) ([]byte, error) {
	if len(breakdown) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score breakdown: %w", err)
	}
	return data, nil
}
