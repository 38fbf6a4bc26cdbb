package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cartpg "github.com/dmehra2102/storefront/internal/cart/infrastructure/postgres"
	identitypg "github.com/dmehra2102/storefront/internal/identity/infrastructure/postgres"
	inventorypg "github.com/dmehra2102/storefront/internal/inventory/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/pgutil"
)

type UnitOfWork struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewUnitOfWork(log *slog.Logger, pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{log: log, pool: pool}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, st application.Stores) error) error {
	return pgutil.ExecTx(ctx, u.pool, pgutil.DefaultTxOptions, func(tx pgx.Tx) error {
		return fn(ctx, Stores(u.log, tx))
	})
}

// Stores binds every repository the order workflows use to db.
func Stores(log *slog.Logger, db pgutil.DBTX) application.Stores {
	return application.Stores{
		Orders:   NewRepository(log, db),
		Carts:    cartpg.NewRepository(log, db),
		Products: inventorypg.NewRepository(log, db),
		Users:    identitypg.NewRepository(log, db),
		Events:   outbox.NewWriter(db),
	}
}
