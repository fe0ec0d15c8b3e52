package models

import (
	"strings"
	"time"
)

// BrandType classifies how a catalog entry should be matched against
// scraped results. The values mirror the labels used in the product sheet.
type BrandType string

const (
	BrandHome     BrandType = "Home Brand"
	BrandSpecific BrandType = "Specific"
)

// ParseBrandType normalizes a raw sheet value into a BrandType. Unknown
// values fall back to BrandSpecific, which applies no brand filter.
func ParseBrandType(raw string) BrandType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "home brand", "home_brand", "homebrand":
		return BrandHome
	default:
		return BrandSpecific
	}
}

// CatalogEntry is one row of the product catalog. Entries are created and
// maintained by the catalog store; the update pass only reads them.
type CatalogEntry struct {
	ProductName   string    `json:"product_name"`
	Category      string    `json:"category,omitempty"`
	SearchKeyword string    `json:"search_keyword"`
	TargetSize    float64   `json:"target_size"`
	BrandType     BrandType `json:"brand_type"`
	CurrentPrice  float64   `json:"current_price,omitempty"`
	LastUpdated   time.Time `json:"last_updated,omitempty"`
}

// SearchResult is one scraped candidate for a catalog entry. Results are
// ephemeral: produced per search call and discarded after matching.
type SearchResult struct {
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

func (e *CatalogEntry) Validate() []string {
	var errors []string

	if strings.TrimSpace(e.ProductName) == "" {
		errors = append(errors, "product_name is required")
	}

	if e.TargetSize < 0 {
		errors = append(errors, "target_size must not be negative")
	}

	return errors
}
