package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/platform/db/dbtest"
)

func TestRepositorySaveGetDelete(t *testing.T) {
	env := dbtest.Setup(t)
	ctx := context.Background()
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), env.Pool)

	uid := dbtest.SeedUser(t, env.Pool, "0b7e4a3c-9f0a-4b43-8d8e-1f3c2a9d6e11", "user", true)

	_, err := repo.Get(ctx, uid)
	require.ErrorIs(t, err, domain.ErrCartNotFound)

	now := time.Now().UTC().Truncate(time.Millisecond)
	c := domain.New("c6f7a1d2-0000-4000-8000-000000000001", uid, now)
	require.NoError(t, c.Add("c6f7a1d2-0000-4000-8000-000000000002", inventory.Product{ID: "p", Name: "Pen", PriceCents: 150, Quantity: 3, Image: "pen.png"}, now))
	require.NoError(t, c.Add("c6f7a1d2-0000-4000-8000-000000000003", inventory.Product{ID: "p", Name: "Pen", PriceCents: 150, Quantity: 3}, now))
	require.NoError(t, repo.Save(ctx, &c))

	got, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Items, got.Items)
	assert.Equal(t, int64(300), got.TotalCents)

	require.NoError(t, c.Remove("c6f7a1d2-0000-4000-8000-000000000002", now))
	require.NoError(t, c.Add("c6f7a1d2-0000-4000-8000-000000000004", inventory.Product{ID: "q", Name: "Ink", PriceCents: 90, Quantity: 1}, now))
	require.NoError(t, repo.Save(ctx, &c))
	got, err = repo.GetForUpdate(ctx, uid)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "q", got.Items[0].ProductID)

	require.NoError(t, repo.Delete(ctx, uid))
	_, err = repo.Get(ctx, uid)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestSaveAdoptsIDOfCartCreatedConcurrently(t *testing.T) {
	env := dbtest.Setup(t)
	ctx := context.Background()
	repo := NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), env.Pool)
	uid := dbtest.SeedUser(t, env.Pool, "0b7e4a3c-9f0a-4b43-8d8e-1f3c2a9d6e12", "user", true)
	now := time.Now().UTC()

	first := domain.New("c6f7a1d2-0000-4000-8000-000000000011", uid, now)
	require.NoError(t, first.Add("c6f7a1d2-0000-4000-8000-000000000012", inventory.Product{ID: "p", Name: "Pen", PriceCents: 150, Quantity: 3}, now))
	require.NoError(t, repo.Save(ctx, &first))

	// a second first-add for the same user built its own cart id
	second := domain.New("c6f7a1d2-0000-4000-8000-000000000021", uid, now)
	require.NoError(t, second.Add("c6f7a1d2-0000-4000-8000-000000000022", inventory.Product{ID: "q", Name: "Ink", PriceCents: 90, Quantity: 1}, now))
	require.NoError(t, repo.Save(ctx, &second))

	assert.Equal(t, first.ID, second.ID)
	got, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
