package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rl1809/cart-service/internal/core/domain"
	"github.com/rl1809/cart-service/internal/port"
	"github.com/rl1809/cart-service/internal/telemetry"
)

const DefaultEnrichmentTimeout = 3 * time.Second

// CartService keeps a user's cart consistent across the durable store and
// the cache. Reads are cache-aside; writes go to the store first and then
// refresh the cache. Concurrent writes for one user are last-write-wins
// unless WithSerializedWrites is set.
type CartService struct {
	store   port.CartStore
	cache   port.CartCache
	catalog port.ProductCatalog

	log           zerolog.Logger
	metrics       *telemetry.Metrics
	cacheTTL      time.Duration
	enrichTimeout time.Duration
	now           func() time.Time
	locks         *keyedMutex
}

type Option func(*CartService)

func WithLogger(l zerolog.Logger) Option {
	return func(s *CartService) { s.log = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *CartService) { s.metrics = m }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *CartService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithEnrichmentTimeout(d time.Duration) Option {
	return func(s *CartService) {
		if d > 0 {
			s.enrichTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *CartService) { s.now = now }
}

// WithSerializedWrites runs mutating operations for the same user one at a
// time within this process. It does not coordinate across replicas.
func WithSerializedWrites() Option {
	return func(s *CartService) { s.locks = newKeyedMutex() }
}

func NewCartService(store port.CartStore, cache port.CartCache, catalog port.ProductCatalog, opts ...Option) *CartService {
	s := &CartService{
		store:         store,
		cache:         cache,
		catalog:       catalog,
		log:           zerolog.Nop(),
		cacheTTL:      port.DefaultCacheTTL,
		enrichTimeout: DefaultEnrichmentTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the cached cart when present, otherwise the durable cart
// (repopulating the cache), otherwise an empty cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (cart domain.Cart, err error) {
	defer func() { s.metrics.Operation("get_cart", err) }()

	if err := validateUser(userID); err != nil {
		return domain.Cart{}, err
	}

	if cached := s.readCache(ctx, userID); cached != nil {
		return *cached, nil
	}

	stored, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if stored == nil {
		s.log.Debug().Str("user_id", userID).Msg("no cart found, returning empty cart")
		return domain.EmptyCart(userID), nil
	}

	stored.Recalculate()
	s.refreshCache(ctx, *stored)
	return *stored, nil
}

// AddItem merges quantity of productID into the user's cart, creating the
// cart on first use. Catalog failures degrade to placeholder product data.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (cart domain.Cart, err error) {
	defer func() { s.metrics.Operation("add_item", err) }()

	productID = strings.TrimSpace(productID)
	if err := validate(userID, productID); err != nil {
		return domain.Cart{}, err
	}
	if err := validateQuantity(quantity); err != nil {
		return domain.Cart{}, err
	}

	defer s.lock(userID)()

	s.log.Info().Str("user_id", userID).Str("product_id", productID).Int("quantity", quantity).Msg("adding item to cart")

	stored, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	now := s.now()
	if stored == nil {
		c := domain.NewCart(userID, now)
		stored = &c
	}
	if stored.QuantityOf(productID) > domain.MaxQuantity-quantity {
		return domain.Cart{}, ErrQuantityTooLarge
	}

	product, enriched := s.enrich(ctx, productID)
	stored.Merge(product, quantity, enriched, now)

	return s.save(ctx, *stored)
}

// UpdateItemQuantity sets the quantity of an existing line. Zero is not a
// delete; use RemoveItem.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (cart domain.Cart, err error) {
	defer func() { s.metrics.Operation("update_item", err) }()

	productID = strings.TrimSpace(productID)
	if err := validate(userID, productID); err != nil {
		return domain.Cart{}, err
	}
	if err := validateQuantity(quantity); err != nil {
		return domain.Cart{}, err
	}

	defer s.lock(userID)()

	s.log.Info().Str("user_id", userID).Str("product_id", productID).Int("quantity", quantity).Msg("updating cart item")

	stored, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if stored == nil {
		return domain.Cart{}, ErrCartNotFound
	}
	if !stored.SetQuantity(productID, quantity, s.now()) {
		return domain.Cart{}, ErrLineNotFound
	}

	return s.save(ctx, *stored)
}

// RemoveItem drops productID from the cart. A product that is not in the
// cart is a no-op; a missing cart is ErrCartNotFound.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (cart domain.Cart, err error) {
	defer func() { s.metrics.Operation("remove_item", err) }()

	productID = strings.TrimSpace(productID)
	if err := validate(userID, productID); err != nil {
		return domain.Cart{}, err
	}

	defer s.lock(userID)()

	s.log.Info().Str("user_id", userID).Str("product_id", productID).Msg("removing cart item")

	stored, err := s.load(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if stored == nil {
		return domain.Cart{}, ErrCartNotFound
	}
	stored.Remove(productID, s.now())

	return s.save(ctx, *stored)
}

// ClearCart deletes the cart from both tiers. It is idempotent.
func (s *CartService) ClearCart(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.Operation("clear_cart", err) }()

	if err := validateUser(userID); err != nil {
		return err
	}

	defer s.lock(userID)()

	s.log.Info().Str("user_id", userID).Msg("clearing cart")

	start := time.Now()
	err = s.store.Delete(ctx, userID)
	s.metrics.ObserveStore("delete", start)
	if err != nil {
		return storeErr("delete cart", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, userID); err != nil {
			s.metrics.CacheError("delete")
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to delete cart from cache")
		}
	}
	return nil
}

// CachedCart reports whether a live cache entry exists for userID. Cache
// errors read as false.
func (s *CartService) CachedCart(ctx context.Context, userID string) bool {
	if s.cache == nil || userID == "" {
		return false
	}
	ok, err := s.cache.Exists(ctx, userID)
	if err != nil {
		s.metrics.CacheError("exists")
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to check cart cache")
		return false
	}
	return ok
}

func (s *CartService) load(ctx context.Context, userID string) (*domain.Cart, error) {
	start := time.Now()
	cart, err := s.store.Get(ctx, userID)
	s.metrics.ObserveStore("get", start)
	if err != nil {
		return nil, storeErr("load cart", err)
	}
	if cart != nil {
		c := cart.Clone()
		return &c, nil
	}
	return nil, nil
}

// save persists cart and refreshes the cache only after the durable write
// succeeded.
func (s *CartService) save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	cart.Recalculate()

	start := time.Now()
	err := s.store.Put(ctx, cart)
	s.metrics.ObserveStore("put", start)
	if err != nil {
		return domain.Cart{}, storeErr("save cart", err)
	}

	s.refreshCache(ctx, cart)
	s.metrics.ObserveCartValue(cart.TotalPrice.InexactFloat64())
	return cart, nil
}

func (s *CartService) readCache(ctx context.Context, userID string) *domain.Cart {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.metrics.CacheLookup("error")
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to read cart from cache")
		return nil
	}
	if cached == nil {
		s.metrics.CacheLookup("miss")
		return nil
	}
	s.metrics.CacheLookup("hit")
	s.log.Debug().Str("user_id", userID).Msg("cart found in cache")
	return cached
}

func (s *CartService) refreshCache(ctx context.Context, cart domain.Cart) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutWithTTL(ctx, cart, s.cacheTTL); err != nil {
		s.metrics.CacheError("put")
		s.log.Warn().Err(err).Str("user_id", cart.UserID).Msg("failed to save cart to cache")
		return
	}
	s.log.Debug().Str("user_id", cart.UserID).Dur("ttl", s.cacheTTL).Msg("cart saved to cache")
}

// enrich looks up productID in the catalog within enrichTimeout. The bool
// is false when placeholder data was substituted.
func (s *CartService) enrich(ctx context.Context, productID string) (domain.Product, bool) {
	if s.catalog == nil {
		s.metrics.EnrichmentOutcome(false)
		return domain.PlaceholderProduct(productID), false
	}

	ctx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	defer cancel()

	p, err := s.catalog.Product(ctx, productID)
	if err == nil && p.Price.IsNegative() {
		err = errNegativePrice
	}
	if err != nil {
		s.metrics.EnrichmentOutcome(false)
		s.log.Warn().Err(err).Str("product_id", productID).Msg("product lookup failed, continuing with default values")
		return domain.PlaceholderProduct(productID), false
	}

	s.metrics.EnrichmentOutcome(true)
	p.ID = productID
	p.Price = p.Price.Round(domain.PriceScale)
	return p, true
}

func (s *CartService) lock(userID string) func() {
	if s.locks == nil {
		return func() {}
	}
	return s.locks.Lock(userID)
}

func validate(userID, productID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	if productID == "" {
		return ErrMissingProductID
	}
	if len(productID) > domain.MaxIDLength {
		return ErrProductIDTooLong
	}
	return nil
}

func validateUser(userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if len(userID) > domain.MaxIDLength {
		return ErrUserIDTooLong
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > domain.MaxQuantity {
		return ErrQuantityTooLarge
	}
	return nil
}
