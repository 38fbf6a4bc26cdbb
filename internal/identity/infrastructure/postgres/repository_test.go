package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/internal/platform/db/dbtest"
	"github.com/dmehra2102/storefront/pkg/pgutil"
)

func TestRepositoryGetSetActiveCount(t *testing.T) {
	env := dbtest.Setup(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewRepository(log, env.Pool)

	rider := dbtest.SeedUser(t, env.Pool, "5a0c3f9e-3d2b-4f4e-9b1a-7e6d5c4b3a21", "rider", true)
	dbtest.SeedUser(t, env.Pool, "5a0c3f9e-3d2b-4f4e-9b1a-7e6d5c4b3a22", "user", true)

	u, err := repo.Get(ctx, rider)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRider, u.Role)
	assert.Equal(t, rider+"@example.com", u.Email)
	assert.True(t, u.IsActive)

	_, err = repo.Get(ctx, "5a0c3f9e-3d2b-4f4e-9b1a-7e6d5c4b3a99")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	err = pgutil.ExecTx(ctx, env.Pool, pgutil.DefaultTxOptions, func(tx pgx.Tx) error {
		txRepo := NewRepository(log, tx)
		if _, err := txRepo.GetForUpdate(ctx, rider); err != nil {
			return err
		}
		return txRepo.SetActive(ctx, rider, false)
	})
	require.NoError(t, err)

	u, err = repo.Get(ctx, rider)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	require.ErrorIs(t, repo.SetActive(ctx, "5a0c3f9e-3d2b-4f4e-9b1a-7e6d5c4b3a99", true), domain.ErrUserNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
