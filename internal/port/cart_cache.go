package port

import (
	"context"
	"time"

	"github.com/rl1809/cart-service/internal/core/domain"
)

// DefaultCacheTTL is how long a cached cart lives after its last write.
const DefaultCacheTTL = 7 * 24 * time.Hour

// CartCache is a TTL-aware CartStore. Put uses the adapter's default TTL.
// Expired entries behave as absent.
type CartCache interface {
	CartStore

	// PutWithTTL stores cart for ttl; ttl <= 0 selects the default TTL.
	PutWithTTL(ctx context.Context, cart domain.Cart, ttl time.Duration) error

	// Exists reports whether a live entry is present for userID.
	Exists(ctx context.Context, userID string) (bool, error)
}
