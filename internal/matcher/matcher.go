package matcher

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/grocerytrack/grocery-price-tracker/internal/models"
)

var sizeTokenPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Decision is the outcome of matching one catalog entry against a list of
// scraped candidates.
type Decision struct {
	Matched bool
	Result  models.SearchResult
	// SizeDelta is abs(extracted size - target size) for the selected
	// candidate, minimal among all filter-passing candidates.
	SizeDelta float64
}

// Matcher selects the best scraped candidate for a catalog entry based on
// package size and brand classification.
type Matcher struct {
	homeBrands []string
}

// New creates a Matcher with the given list of recognized home-brand names.
// The list is configuration data, not logic: it comes from config so it can
// change without a code change.
func New(homeBrands []string) *Matcher {
	brands := make([]string, 0, len(homeBrands))
	for _, b := range homeBrands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			brands = append(brands, b)
		}
	}
	return &Matcher{homeBrands: brands}
}

// Select picks the candidate whose extracted package size is closest to
// targetSize, after applying the brand filter for brandType. Ties are broken
// by input order. Candidates without a numeric size token in the title are
// discarded. An invalid target size degrades to no-match so a running pass
// is never aborted by one bad catalog row.
//
// For BrandSpecific (and any unrecognized brand type) no brand filter is
// applied here; the caller is expected to have restricted candidates via the
// search keyword itself.
func (m *Matcher) Select(candidates []models.SearchResult, targetSize float64, brandType models.BrandType) Decision {
	if math.IsNaN(targetSize) || math.IsInf(targetSize, 0) || targetSize < 0 {
		return Decision{}
	}

	best := Decision{SizeDelta: math.Inf(1)}

	for _, candidate := range candidates {
		size, ok := extractSize(candidate.Title)
		if !ok {
			continue
		}

		if brandType == models.BrandHome && !m.containsHomeBrand(candidate.Title) {
			continue
		}

		diff := math.Abs(size - targetSize)
		if diff < best.SizeDelta {
			best = Decision{Matched: true, Result: candidate, SizeDelta: diff}
		}
	}

	if !best.Matched {
		return Decision{}
	}
	return best
}

// extractSize pulls the first numeric token from a title and interprets it
// as the package size. Multi-pack titles like "2 x 500g" therefore extract
// 2, not 500 — the heuristic is deliberately kept that simple.
func extractSize(title string) (float64, bool) {
	token := sizeTokenPattern.FindString(strings.ToLower(title))
	if token == "" {
		return 0, false
	}

	size, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}

func (m *Matcher) containsHomeBrand(title string) bool {
	lower := strings.ToLower(title)
	for _, brand := range m.homeBrands {
		if strings.Contains(lower, brand) {
			return true
		}
	}
	return false
}
