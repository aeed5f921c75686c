package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is the catalog view of an item used to enrich cart lines.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageURL string
	Status   string
}

// PlaceholderProduct is used when the catalog cannot be reached.
func PlaceholderProduct(productID string) Product {
	return Product{
		ID:    productID,
		Name:  fmt.Sprintf("Product #%s", productID),
		Price: decimal.Zero,
	}
}
