package port

import (
	"context"

	"github.com/rl1809/cart-service/internal/core/domain"
)

type ProductCatalog interface {
	// Product fetches authoritative name, price and image for productID.
	// Any failure, including a malformed response, is returned as an error.
	Product(ctx context.Context, productID string) (domain.Product, error)
}
