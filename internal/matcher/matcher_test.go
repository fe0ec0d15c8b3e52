package matcher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grocerytrack/grocery-price-tracker/internal/models"
)

var testHomeBrands = []string{"farmdale", "choceur", "westacre"}

func TestSelect(t *testing.T) {
	m := New(testHomeBrands)

	tests := []struct {
		name       string
		candidates []models.SearchResult
		targetSize float64
		brandType  models.BrandType
		wantMatch  bool
		wantTitle  string
		wantDelta  float64
	}{
		{
			name: "home brand candidate wins over non home brand",
			candidates: []models.SearchResult{
				{Title: "Farmdale Milk 2L", Price: 3.20},
				{Title: "Brand X Milk 1L", Price: 2.10},
			},
			targetSize: 2000,
			brandType:  models.BrandHome,
			wantMatch:  true,
			wantTitle:  "Farmdale Milk 2L",
			wantDelta:  1998,
		},
		{
			name: "no home brand candidate",
			candidates: []models.SearchResult{
				{Title: "Brand X Milk 1L", Price: 2.10},
			},
			targetSize: 2000,
			brandType:  models.BrandHome,
			wantMatch:  false,
		},
		{
			name: "closest size wins",
			candidates: []models.SearchResult{
				{Title: "500g Choceur Bar", Price: 6.50},
				{Title: "250g Choceur Bar", Price: 3.50},
			},
			targetSize: 300,
			brandType:  models.BrandHome,
			wantMatch:  true,
			wantTitle:  "250g Choceur Bar",
			wantDelta:  50,
		},
		{
			name: "tie broken by input order",
			candidates: []models.SearchResult{
				{Title: "Westacre Butter 400g", Price: 4.00},
				{Title: "Farmdale Butter 600g", Price: 5.00},
			},
			targetSize: 500,
			brandType:  models.BrandHome,
			wantMatch:  true,
			wantTitle:  "Westacre Butter 400g",
			wantDelta:  100,
		},
		{
			name: "first numeric token used even for multi-packs",
			candidates: []models.SearchResult{
				{Title: "Farmdale 2 x 500g Pack", Price: 7.00},
				{Title: "Farmdale 480g Tub", Price: 3.50},
			},
			targetSize: 500,
			brandType:  models.BrandHome,
			wantMatch:  true,
			wantTitle:  "Farmdale 480g Tub",
			wantDelta:  20,
		},
		{
			name: "specific brand applies no brand filter",
			candidates: []models.SearchResult{
				{Title: "Vegemite 380g", Price: 6.00},
			},
			targetSize: 380,
			brandType:  models.BrandSpecific,
			wantMatch:  true,
			wantTitle:  "Vegemite 380g",
			wantDelta:  0,
		},
		{
			name: "unrecognized brand type treated like specific",
			candidates: []models.SearchResult{
				{Title: "Vegemite 380g", Price: 6.00},
			},
			targetSize: 380,
			brandType:  models.BrandType("Mystery"),
			wantMatch:  true,
			wantTitle:  "Vegemite 380g",
			wantDelta:  0,
		},
		{
			name:       "empty candidate list",
			candidates: nil,
			targetSize: 500,
			brandType:  models.BrandHome,
			wantMatch:  false,
		},
		{
			name: "candidates without numeric tokens are discarded",
			candidates: []models.SearchResult{
				{Title: "Farmdale Milk", Price: 3.20},
				{Title: "Choceur Block", Price: 4.50},
			},
			targetSize: 500,
			brandType:  models.BrandHome,
			wantMatch:  false,
		},
		{
			name: "negative target size degrades to no match",
			candidates: []models.SearchResult{
				{Title: "Farmdale Milk 2L", Price: 3.20},
			},
			targetSize: -1,
			brandType:  models.BrandHome,
			wantMatch:  false,
		},
		{
			name: "NaN target size degrades to no match",
			candidates: []models.SearchResult{
				{Title: "Farmdale Milk 2L", Price: 3.20},
			},
			targetSize: math.NaN(),
			brandType:  models.BrandHome,
			wantMatch:  false,
		},
		{
			name: "decimal size tokens",
			candidates: []models.SearchResult{
				{Title: "Farmdale Cream 1.5L", Price: 4.20},
				{Title: "Farmdale Cream 1L", Price: 3.00},
			},
			targetSize: 1.4,
			brandType:  models.BrandHome,
			wantMatch:  true,
			wantTitle:  "Farmdale Cream 1.5L",
			wantDelta:  0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := m.Select(tt.candidates, tt.targetSize, tt.brandType)

			if !tt.wantMatch {
				assert.False(t, decision.Matched)
				return
			}

			require.True(t, decision.Matched)
			assert.Equal(t, tt.wantTitle, decision.Result.Title)
			assert.InDelta(t, tt.wantDelta, decision.SizeDelta, 1e-9)
		})
	}
}

func TestSelectNeverReturnsFilteredCandidate(t *testing.T) {
	m := New([]string{"farmdale"})

	candidates := []models.SearchResult{
		{Title: "Brand X Milk 1000ml", Price: 2.00},
		{Title: "Brand Y Milk 1000ml", Price: 2.20},
		{Title: "Farmdale Milk 3000ml", Price: 4.00},
	}

	// The non home-brand candidates are far closer to the target, but the
	// filter must exclude them regardless.
	decision := m.Select(candidates, 1000, models.BrandHome)

	require.True(t, decision.Matched)
	assert.Equal(t, "Farmdale Milk 3000ml", decision.Result.Title)
	assert.InDelta(t, 2000, decision.SizeDelta, 1e-9)
}

func TestExtractSize(t *testing.T) {
	tests := []struct {
		title    string
		expected float64
		ok       bool
	}{
		{"Farmdale Milk 2L", 2, true},
		{"2 x 500g Pack", 2, true},
		{"1.25L Sparkling Water", 1.25, true},
		{"No size here", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			size, ok := extractSize(tt.title)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, size, 1e-9)
			}
		})
	}
}
