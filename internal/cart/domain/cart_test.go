package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAddSnapshotsProductAndMergesLines(t *testing.T) {
	c := New("cart-1", "user-1", now)
	apple := inventory.Product{ID: "a", Name: "Apple", PriceCents: 1000, Quantity: 5, Image: "apple.png"}

	require.NoError(t, c.Add("item-1", apple, now))
	apple.PriceCents = 9999
	require.NoError(t, c.Add("item-2", apple, now))

	require.Len(t, c.Items, 1)
	assert.Equal(t, Item{ID: "item-1", ProductID: "a", Quantity: 2, PriceCents: 1000, Title: "Apple", Image: "apple.png"}, c.Items[0])
	assert.Equal(t, int64(2000), c.TotalCents)
}

func TestAddOutOfStock(t *testing.T) {
	c := New("cart-1", "user-1", now)
	err := c.Add("item-1", inventory.Product{ID: "a", Quantity: 0}, now)
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.True(t, c.IsEmpty())
}

func TestIncrementRespectsStock(t *testing.T) {
	c := New("cart-1", "user-1", now)
	require.NoError(t, c.Add("item-1", inventory.Product{ID: "a", PriceCents: 250, Quantity: 2}, now))

	require.NoError(t, c.Increment("item-1", 2, now))
	assert.ErrorIs(t, c.Increment("item-1", 2, now), ErrLimitReached)
	assert.ErrorIs(t, c.Increment("nope", 2, now), ErrItemNotFound)

	item, ok := c.Item("item-1")
	require.True(t, ok)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, int64(500), c.TotalCents)
}

func TestDecrementRemovesLastUnit(t *testing.T) {
	c := New("cart-1", "user-1", now)
	require.NoError(t, c.Add("item-1", inventory.Product{ID: "a", PriceCents: 100, Quantity: 9}, now))
	require.NoError(t, c.Add("item-2", inventory.Product{ID: "b", PriceCents: 300, Quantity: 9}, now))
	require.NoError(t, c.Increment("item-1", 9, now))

	require.NoError(t, c.Decrement("item-1", now))
	assert.Equal(t, int64(400), c.TotalCents)

	require.NoError(t, c.Decrement("item-1", now))
	require.Len(t, c.Items, 1)
	assert.Equal(t, "item-2", c.Items[0].ID)

	require.NoError(t, c.Remove("item-2", now))
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.TotalCents)
	assert.ErrorIs(t, c.Remove("item-2", now), ErrItemNotFound)
}

func TestEmptyValue(t *testing.T) {
	c := Empty("user-1")
	assert.Empty(t, c.ID)
	assert.NotNil(t, c.Items)
	assert.True(t, c.IsEmpty())
}
