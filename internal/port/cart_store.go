package port

import (
	"context"

	"github.com/rl1809/cart-service/internal/core/domain"
)

// CartStore is the durable, authoritative copy of a cart keyed by user ID.
type CartStore interface {
	// Get returns (nil, nil) when the user has no cart.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Put replaces the full cart state for cart.UserID.
	Put(ctx context.Context, cart domain.Cart) error

	// Delete removes the cart. Deleting a missing cart is not an error.
	Delete(ctx context.Context, userID string) error
}
