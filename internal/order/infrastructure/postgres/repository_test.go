package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	cartpg "github.com/dmehra2102/storefront/internal/cart/infrastructure/postgres"
	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
	inventorypg "github.com/dmehra2102/storefront/internal/inventory/infrastructure/postgres"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/internal/platform/db/dbtest"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

const productID = "aaaaaaaa-0000-4000-8000-000000000001"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func userID(n int) string { return fmt.Sprintf("10000000-0000-4000-8000-%012d", n) }

func fillCart(t *testing.T, env *dbtest.Env, uid string, qty int) {
	t.Helper()
	now := time.Now().UTC()
	c := cart.New(fmt.Sprintf("c0000000-%s", uid[9:]), uid, now)
	p := inventory.Product{ID: productID, Name: "Widget", PriceCents: 1000, Quantity: qty}
	require.NoError(t, c.Add(fmt.Sprintf("d0000000-%s", uid[9:]), p, now))
	c.Items[0].Quantity = qty
	require.NoError(t, cartpg.NewRepository(discard(), env.Pool).Save(context.Background(), &c))
}

func newService(env *dbtest.Env) *application.Service {
	log := discard()
	return application.NewService(log, NewUnitOfWork(log, env.Pool), Stores(log, env.Pool), "shop-service-test")
}

func stock(t *testing.T, env *dbtest.Env) int {
	t.Helper()
	p, err := inventorypg.NewRepository(discard(), env.Pool).Get(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	env := dbtest.Setup(t)
	dbtest.SeedProduct(t, env.Pool, productID, 1000, 3)
	svc := newService(env)

	const buyers = 6
	actors := make([]identity.Actor, buyers)
	for i := range buyers {
		uid := dbtest.SeedUser(t, env.Pool, userID(i+1), "user", true)
		fillCart(t, env, uid, 1)
		actors[i] = identity.Actor{ID: uid, Role: identity.RoleUser}
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	numbers := make([]string, buyers)
	for i := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := svc.PlaceOrder(context.Background(), actors[i], application.PlaceOrderInput{Address: "1 Main St", ContactNumber: "555"})
			errs[i], numbers[i] = err, o.Number
		}()
	}
	wg.Wait()

	placed, rejected := 0, 0
	seen := map[string]bool{}
	for i, err := range errs {
		if err == nil {
			placed++
			assert.False(t, seen[numbers[i]], "duplicate order number %s", numbers[i])
			seen[numbers[i]] = true
			continue
		}
		assert.True(t, apperr.Is(err, apperr.KindInsufficientStock), "unexpected error: %v", err)
		rejected++
	}
	assert.Equal(t, 3, placed)
	assert.Equal(t, 3, rejected)
	assert.Equal(t, 0, stock(t, env))

	var outbox int
	require.NoError(t, env.Pool.QueryRow(context.Background(), `SELECT count(*) FROM outbox WHERE type = $1`, domain.EventPlaced).Scan(&outbox))
	assert.Equal(t, 3, outbox)
}

func TestPlaceCancelAndQuery(t *testing.T) {
	env := dbtest.Setup(t)
	ctx := context.Background()
	dbtest.SeedProduct(t, env.Pool, productID, 1000, 5)
	uid := dbtest.SeedUser(t, env.Pool, userID(1), "user", true)
	riderID := dbtest.SeedUser(t, env.Pool, userID(2), "rider", true)
	managerID := dbtest.SeedUser(t, env.Pool, userID(3), "manager", true)
	customer := identity.Actor{ID: uid, Role: identity.RoleUser, Email: uid + "@example.com"}
	manager := identity.Actor{ID: managerID, Role: identity.RoleManager}
	rider := identity.Actor{ID: riderID, Role: identity.RoleRider}
	svc := newService(env)

	fillCart(t, env, uid, 2)
	o, err := svc.PlaceOrder(ctx, customer, application.PlaceOrderInput{Address: "1 Main St", ContactNumber: "555"})
	require.NoError(t, err)
	assert.Equal(t, 3, stock(t, env))
	assert.Equal(t, int64(2000), o.TotalCents)

	_, err = cartpg.NewRepository(discard(), env.Pool).Get(ctx, uid)
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	got, err := svc.GetOrder(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, got.Number)
	assert.Equal(t, o.Items, got.Items)

	cancelled, err := svc.CancelOrder(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, stock(t, env))

	fillCart(t, env, uid, 1)
	second, err := svc.PlaceOrder(ctx, customer, application.PlaceOrderInput{Address: "2 Side St", ContactNumber: "555"})
	require.NoError(t, err)
	shipped, err := svc.AssignRider(ctx, manager, application.AssignRiderInput{OrderID: second.ID, RiderID: riderID})
	require.NoError(t, err)
	assert.Equal(t, riderID, shipped.AssignedRider)

	page, err := svc.ListRiderOrders(ctx, rider, application.ListParams{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, second.ID, page.Orders[0].ID)
	assert.Len(t, page.Orders[0].Items, 1)

	delivered, err := svc.UpdateDeliveryStatus(ctx, rider, second.ID, "Delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, delivered.Status)

	reviewed, err := svc.AddFeedback(ctx, customer, second.ID, "on time")
	require.NoError(t, err)
	assert.Equal(t, "on time", reviewed.Feedback)

	page, err = svc.ListUserOrders(ctx, customer, application.ListParams{Status: "Cancelled"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	sum, err := svc.SalesSummary(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), sum.RevenueCents)
	assert.Equal(t, 2, sum.TotalOrders)
	assert.Equal(t, 1, sum.TotalProducts)
	assert.Equal(t, 3, sum.TotalUsers)
	assert.Len(t, sum.RecentOrders, 2)

	buckets, err := svc.SalesOverview(ctx, manager, application.SalesParams{GroupBy: "year"})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(1000), buckets[0].SalesCents)
	assert.Equal(t, 1, buckets[0].Orders)
}
