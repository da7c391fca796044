package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item available for purchase.
//
// A Product is always built from one complete API object and never mutated
// afterwards.
type Product struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Description string
	// ImageURL is the path returned by the API, relative to the server root.
	ImageURL string
}

// ImageLocation resolves the product image path against base.
// Absolute image URLs are returned unchanged.
func (p Product) ImageLocation(base string) string {
	return ResolveImage(base, p.ImageURL)
}

// PriceLabel formats the price for display, e.g. "Rs 9.99".
func (p Product) PriceLabel(currency string) string {
	if currency == "" {
		return p.Price.String()
	}
	return currency + " " + p.Price.String()
}

// ResolveImage joins an image path onto base.
func ResolveImage(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
