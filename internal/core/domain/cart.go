package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MaxQuantity bounds a line quantity. The durable tier stores it as INT.
	MaxQuantity = math.MaxInt32

	// PriceScale is the number of decimal places the durable tier keeps for
	// prices. Prices are rounded to it before they enter a cart.
	PriceScale = 2

	// MaxIDLength bounds user and product ids.
	MaxIDLength = 64
)

// CartLine is one product entry in a cart. Quantity is always >= 1.
type CartLine struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	AddedAt     time.Time       `json:"addedAt"`
}

// Subtotal returns UnitPrice * Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the per-user aggregate. TotalPrice and TotalItems are derived
// from Lines and must be refreshed with Recalculate after every change.
type Cart struct {
	UserID     string          `json:"userId"`
	Lines      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewCart returns an empty cart for userID.
func NewCart(userID string, now time.Time) Cart {
	return Cart{
		UserID:     userID,
		Lines:      []CartLine{},
		TotalPrice: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// EmptyCart is what a reader sees for a user with no persisted cart.
func EmptyCart(userID string) Cart {
	return Cart{
		UserID:     userID,
		Lines:      []CartLine{},
		TotalPrice: decimal.Zero,
	}
}

// Recalculate derives TotalPrice and TotalItems from Lines. TotalItems
// counts distinct products, not the sum of quantities.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	c.TotalPrice = total
	c.TotalItems = len(c.Lines)
}

// Find returns the index of the line for productID, or -1.
func (c *Cart) Find(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// QuantityOf returns the quantity of productID, or 0 when it is not in the cart.
func (c *Cart) QuantityOf(productID string) int {
	if i := c.Find(productID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// Merge adds quantity of product to the cart. An existing line has its
// quantity incremented; its display fields are overwritten only when
// enriched is true. A missing line is appended.
func (c *Cart) Merge(p Product, quantity int, enriched bool, now time.Time) {
	if i := c.Find(p.ID); i >= 0 {
		c.Lines[i].Quantity += quantity
		if enriched {
			c.Lines[i].ProductName = p.Name
			c.Lines[i].UnitPrice = p.Price
			c.Lines[i].ImageURL = p.ImageURL
		}
	} else {
		c.Lines = append(c.Lines, CartLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    quantity,
			ImageURL:    p.ImageURL,
			AddedAt:     now,
		})
	}
	c.touch(now)
}

// SetQuantity overwrites the quantity of productID. It reports false when
// the cart has no such line.
func (c *Cart) SetQuantity(productID string, quantity int, now time.Time) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.Lines[i].Quantity = quantity
	c.touch(now)
	return true
}

// Remove drops the line for productID if present.
func (c *Cart) Remove(productID string, now time.Time) {
	lines := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	c.Lines = lines
	c.touch(now)
}

// Clone returns a deep copy so callers never share the Lines backing array.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.Recalculate()
}
