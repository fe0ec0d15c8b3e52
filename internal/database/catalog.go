package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/grocerytrack/grocery-price-tracker/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product already exists")
)

// PricePoint is one historical price observation for a product.
type PricePoint struct {
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ListEntries returns the full product catalog in creation order. This is
// the catalog-read side of the update pass.
func (db *DB) ListEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	query := `
		SELECT product_name, category, search_keyword, target_size, brand_type, aldi_price, last_updated
		FROM products_master
		ORDER BY created_at ASC`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var entries []models.CatalogEntry
	for rows.Next() {
		var (
			entry       models.CatalogEntry
			brandType   string
			price       sql.NullFloat64
			lastUpdated sql.NullTime
		)

		if err := rows.Scan(&entry.ProductName, &entry.Category, &entry.SearchKeyword,
			&entry.TargetSize, &brandType, &price, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}

		entry.BrandType = models.ParseBrandType(brandType)
		if price.Valid {
			entry.CurrentPrice = price.Float64
		}
		if lastUpdated.Valid {
			entry.LastUpdated = lastUpdated.Time
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}

	return entries, nil
}

// GetEntry returns a single catalog entry by product name.
func (db *DB) GetEntry(ctx context.Context, productName string) (*models.CatalogEntry, error) {
	query := `
		SELECT product_name, category, search_keyword, target_size, brand_type, aldi_price, last_updated
		FROM products_master
		WHERE product_name = $1`

	var (
		entry       models.CatalogEntry
		brandType   string
		price       sql.NullFloat64
		lastUpdated sql.NullTime
	)

	err := db.pool.QueryRow(ctx, query, productName).Scan(&entry.ProductName, &entry.Category,
		&entry.SearchKeyword, &entry.TargetSize, &brandType, &price, &lastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	entry.BrandType = models.ParseBrandType(brandType)
	if price.Valid {
		entry.CurrentPrice = price.Float64
	}
	if lastUpdated.Valid {
		entry.LastUpdated = lastUpdated.Time
	}

	return &entry, nil
}

// UpdatePrice writes a new price for a product and stamps last_updated in
// the same transaction, also appending a price_history row for the charts.
func (db *DB) UpdatePrice(ctx context.Context, productName string, price float64) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE products_master SET
				aldi_price = $2,
				last_updated = CURRENT_TIMESTAMP,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_name = $1`, productName, price)
		if err != nil {
			return fmt.Errorf("failed to update price: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update price for %q: %w", productName, ErrProductNotFound)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO price_history (product_name, price)
			VALUES ($1, $2)`, productName, price); err != nil {
			return fmt.Errorf("failed to record price history: %w", err)
		}

		return nil
	})
}

// AddProduct appends a new catalog entry. Prices start empty; only the
// update pass fills them in.
func (db *DB) AddProduct(ctx context.Context, entry models.CatalogEntry) error {
	query := `
		INSERT INTO products_master (product_name, category, search_keyword, target_size, brand_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_name) DO NOTHING`

	tag, err := db.pool.Exec(ctx, query,
		entry.ProductName, entry.Category, entry.SearchKeyword, entry.TargetSize, string(entry.BrandType))
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insert product %q: %w", entry.ProductName, ErrProductExists)
	}

	return nil
}

// PriceHistory returns the most recent price observations for a product,
// newest first.
func (db *DB) PriceHistory(ctx context.Context, productName string, limit int) ([]PricePoint, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT price, recorded_at
		FROM price_history
		WHERE product_name = $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, productName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Price, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history row: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price history rows: %w", err)
	}

	return points, nil
}
