package application

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

// memState is everything the workflows touch. memUoW runs each unit of work
// against a copy and only swaps it in when fn succeeds.
type memState struct {
	orders   map[string]domain.Order
	carts    map[string]cart.Cart
	products map[string]inventory.Product
	users    map[string]identity.User
	events   []outbox.Event
	seq      int64
}

func newMemState() *memState {
	return &memState{
		orders:   map[string]domain.Order{},
		carts:    map[string]cart.Cart{},
		products: map[string]inventory.Product{},
		users:    map[string]identity.User{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		orders:   maps.Clone(s.orders),
		carts:    maps.Clone(s.carts),
		products: maps.Clone(s.products),
		users:    maps.Clone(s.users),
		events:   slices.Clone(s.events),
		seq:      s.seq,
	}
	for k, v := range c.carts {
		v.Items = slices.Clone(v.Items)
		c.carts[k] = v
	}
	return c
}

type memUoW struct {
	mu    sync.Mutex
	state *memState
	// failAppend makes the outbox write fail, the last step of every workflow.
	failAppend bool
	commits    int
}

func (u *memUoW) Do(ctx context.Context, fn func(ctx context.Context, st Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	work := u.state.clone()
	if err := fn(ctx, work.stores(u.failAppend)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.state = work
	u.commits++
	return nil
}

// reads serves queries against whatever state is committed at call time.
func (u *memUoW) reads() Stores {
	return Stores{
		Orders:   memOrders{u: u},
		Products: memProducts{u: u},
		Users:    memUsers{u: u},
	}
}

func (s *memState) stores(failAppend bool) Stores {
	return Stores{
		Orders:   memOrders{s: s},
		Carts:    memCarts{s: s},
		Products: memProducts{s: s},
		Users:    memUsers{s: s},
		Events:   memEvents{s: s, fail: failAppend},
	}
}

// each mem store either works on a transaction copy (s) or the committed
// state of a unit of work (u).
type memOrders struct {
	s *memState
	u *memUoW
}

func (m memOrders) st() *memState {
	if m.u != nil {
		return m.u.state
	}
	return m.s
}

func (m memOrders) NextNumber(ctx context.Context) (int64, error) {
	m.st().seq++
	return m.st().seq, nil
}

func (m memOrders) Create(ctx context.Context, o domain.Order) error {
	if _, ok := m.st().orders[o.ID]; ok {
		return errors.New("duplicate order")
	}
	m.st().orders[o.ID] = o
	return nil
}

func (m memOrders) Get(ctx context.Context, id string) (domain.Order, error) {
	o, ok := m.st().orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m memOrders) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return m.Get(ctx, id)
}

func (m memOrders) Update(ctx context.Context, o domain.Order) error {
	if _, ok := m.st().orders[o.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	m.st().orders[o.ID] = o
	return nil
}

func (m memOrders) List(ctx context.Context, q domain.Query) ([]domain.Order, int, error) {
	var all []domain.Order
	for _, o := range m.st().orders {
		switch {
		case q.UserID != "" && o.UserID != q.UserID:
		case q.RiderID != "" && o.AssignedRider != q.RiderID:
		case q.Status != "" && o.Status != q.Status:
		case q.ExcludePending && o.Status == domain.StatusPending:
		default:
			all = append(all, o)
		}
	}
	slices.SortFunc(all, func(a, b domain.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := len(all)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)
	return all[start:end], total, nil
}

func (m memOrders) Revenue(ctx context.Context) (int64, int, error) {
	var sum int64
	for _, o := range m.st().orders {
		if o.Status != domain.StatusCancelled {
			sum += o.TotalCents
		}
	}
	return sum, len(m.st().orders), nil
}

func (m memOrders) Sales(ctx context.Context, from, to time.Time, by domain.Granularity) ([]domain.SalesBucket, error) {
	idx := map[[2]int]*domain.SalesBucket{}
	var keys [][2]int
	for _, o := range m.st().orders {
		if o.Status == domain.StatusCancelled || o.CreatedAt.Before(from) || o.CreatedAt.After(to) {
			continue
		}
		k := [2]int{o.CreatedAt.Year(), 0}
		if by == domain.ByMonth {
			k[1] = int(o.CreatedAt.Month())
		}
		b, ok := idx[k]
		if !ok {
			b = &domain.SalesBucket{Year: k[0], Month: k[1]}
			idx[k] = b
			keys = append(keys, k)
		}
		b.SalesCents += o.TotalCents
		b.Orders++
	}
	slices.SortFunc(keys, func(a, b [2]int) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
	out := make([]domain.SalesBucket, 0, len(keys))
	for _, k := range keys {
		b := *idx[k]
		b.AverageCents = b.SalesCents / int64(b.Orders)
		out = append(out, b)
	}
	return out, nil
}

type memCarts struct{ s *memState }

func (m memCarts) GetForUpdate(ctx context.Context, userID string) (cart.Cart, error) {
	c, ok := m.s.carts[userID]
	if !ok {
		return cart.Cart{}, cart.ErrCartNotFound
	}
	return c, nil
}

func (m memCarts) Delete(ctx context.Context, userID string) error {
	delete(m.s.carts, userID)
	return nil
}

type memProducts struct {
	s *memState
	u *memUoW
}

func (m memProducts) st() *memState {
	if m.u != nil {
		return m.u.state
	}
	return m.s
}

func (m memProducts) Get(ctx context.Context, id string) (inventory.Product, error) {
	p, ok := m.st().products[id]
	if !ok {
		return inventory.Product{}, inventory.ErrProductNotFound
	}
	return p, nil
}

func (m memProducts) GetForUpdate(ctx context.Context, id string) (inventory.Product, error) {
	return m.Get(ctx, id)
}

func (m memProducts) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	p, err := m.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if p.Quantity+delta < 0 {
		return p.Quantity, &inventory.InsufficientStockError{ProductID: id, Name: p.Name, Requested: -delta, Available: p.Quantity}
	}
	p.Quantity += delta
	m.st().products[id] = p
	return p.Quantity, nil
}

func (m memProducts) Count(ctx context.Context) (int, error) { return len(m.st().products), nil }

type memUsers struct {
	s *memState
	u *memUoW
}

func (m memUsers) st() *memState {
	if m.u != nil {
		return m.u.state
	}
	return m.s
}

func (m memUsers) Get(ctx context.Context, id string) (identity.User, error) {
	u, ok := m.st().users[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return u, nil
}

func (m memUsers) GetForUpdate(ctx context.Context, id string) (identity.User, error) {
	return m.Get(ctx, id)
}

func (m memUsers) SetActive(ctx context.Context, id string, active bool) error {
	u, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = active
	m.st().users[id] = u
	return nil
}

func (m memUsers) Count(ctx context.Context) (int, error) { return len(m.st().users), nil }

type memEvents struct {
	s    *memState
	fail bool
}

func (m memEvents) Append(ctx context.Context, ev outbox.Event) error {
	if m.fail {
		return errors.New("outbox unavailable")
	}
	m.s.events = append(m.s.events, ev)
	return nil
}
