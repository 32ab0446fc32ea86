package store

import (
	"sort"
	"strings"

	"github.com/quickcart/catalog-api/internal/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest selects one page of results: skip = (Page-1)*Limit.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps out-of-range values back to the defaults
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

// buildPage slices one page out of the full, ordered result set and fills
// in the totals.
func buildPage(items []models.Product, req PageRequest) *models.ProductPage {
	req = req.Normalize()

	total := len(items)
	totalPages := (total + req.Limit - 1) / req.Limit

	offset := (req.Page - 1) * req.Limit
	if offset > total {
		offset = total
	}
	end := offset + req.Limit
	if end > total {
		end = total
	}

	products := make([]models.Product, end-offset)
	copy(products, items[offset:end])

	return &models.ProductPage{
		Products:   products,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}
}

// matchesQuery reports whether the product matches a case-insensitive
// substring search across name, description, and category (OR, not AND).
func matchesQuery(p *models.Product, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

// filterProducts keeps the products matching the query, preserving order
func filterProducts(items []models.Product, query string) []models.Product {
	matched := make([]models.Product, 0, len(items))
	for i := range items {
		if matchesQuery(&items[i], query) {
			matched = append(matched, items[i])
		}
	}
	return matched
}

// sortByCreation orders products by creation time, oldest first, with the
// ID as a tiebreaker so pages are stable.
func sortByCreation(items []models.Product) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
