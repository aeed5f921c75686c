package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id, name, price string) Product {
	return Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestCart_MergeAppendsAndIncrements(t *testing.T) {
	now := time.Now()
	c := NewCart("u1", now)

	c.Merge(product("p1", "Mug", "10.00"), 2, true, now)
	require.Len(t, c.Lines, 1)
	assert.True(t, decimal.RequireFromString("20").Equal(c.TotalPrice))

	c.Merge(product("p1", "Mug", "10.00"), 3, true, now)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("50").Equal(c.TotalPrice))
	assert.Equal(t, 1, c.TotalItems)
}

func TestCart_MergeOverwritesOnlyWhenEnriched(t *testing.T) {
	now := time.Now()
	c := NewCart("u1", now)
	c.Merge(product("p1", "Mug", "10.00"), 1, true, now)

	c.Merge(PlaceholderProduct("p1"), 1, false, now)
	assert.Equal(t, "Mug", c.Lines[0].ProductName)
	assert.True(t, decimal.RequireFromString("20").Equal(c.TotalPrice))

	c.Merge(product("p1", "Big Mug", "12.50"), 1, true, now)
	assert.Equal(t, "Big Mug", c.Lines[0].ProductName)
	assert.True(t, decimal.RequireFromString("37.5").Equal(c.TotalPrice))
}

func TestCart_MergePreservesAddedAt(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCart("u1", first)
	c.Merge(product("p1", "Mug", "1"), 1, true, first)
	c.Merge(product("p1", "Mug", "1"), 1, true, first.Add(time.Hour))

	assert.Equal(t, first, c.Lines[0].AddedAt)
	assert.Equal(t, first.Add(time.Hour), c.UpdatedAt)
}

func TestCart_TotalItemsCountsDistinctLines(t *testing.T) {
	now := time.Now()
	c := NewCart("u1", now)
	c.Merge(product("p1", "A", "1.10"), 4, true, now)
	c.Merge(product("p2", "B", "2.20"), 1, true, now)

	assert.Equal(t, 2, c.TotalItems)
	assert.True(t, decimal.RequireFromString("6.60").Equal(c.TotalPrice))
}

func TestCart_SetQuantity(t *testing.T) {
	now := time.Now()
	c := NewCart("u1", now)
	c.Merge(product("p1", "A", "10"), 5, true, now)

	assert.True(t, c.SetQuantity("p1", 1, now))
	assert.True(t, decimal.RequireFromString("10").Equal(c.TotalPrice))
	assert.False(t, c.SetQuantity("missing", 1, now))
}

func TestCart_RemoveMissingLineKeepsTotals(t *testing.T) {
	now := time.Now()
	c := NewCart("u1", now)
	c.Merge(product("p1", "A", "3"), 2, true, now)

	c.Remove("nope", now)
	require.Len(t, c.Lines, 1)
	assert.True(t, decimal.RequireFromString("6").Equal(c.TotalPrice))

	c.Remove("p1", now)
	assert.Empty(t, c.Lines)
	assert.True(t, c.TotalPrice.IsZero())
	assert.Equal(t, 0, c.TotalItems)
}

func TestCart_CloneDoesNotShareLines(t *testing.T) {
	now := time.Now()
	c := NewCart("u1", now)
	c.Merge(product("p1", "A", "3"), 2, true, now)

	cp := c.Clone()
	cp.Lines[0].Quantity = 99
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestPlaceholderProduct(t *testing.T) {
	p := PlaceholderProduct("42")
	assert.Equal(t, "Product #42", p.Name)
	assert.True(t, p.Price.IsZero())
	assert.Empty(t, p.ImageURL)
}
