package application

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/access"
	cart "github.com/dmehra2102/storefront/internal/cart/domain"
	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	inventoryapp "github.com/dmehra2102/storefront/internal/inventory/application"
	inventory "github.com/dmehra2102/storefront/internal/inventory/domain"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
	"github.com/dmehra2102/storefront/pkg/metrics"
	"github.com/dmehra2102/storefront/pkg/outbox"
)

const recentOrdersLimit = 5

type Service struct {
	log    *slog.Logger
	uow    UnitOfWork
	reads  Stores
	source string
	now    func() time.Time
	newID  func() string
}

// NewService wires the workflows. reads serves the query operations outside
// any transaction; every write goes through uow.
func NewService(log *slog.Logger, uow UnitOfWork, reads Stores, source string) *Service {
	return &Service{
		log:    log,
		uow:    uow,
		reads:  reads,
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// PlaceOrder turns the caller's cart into a pending order. Stock for every
// line is reserved, the order is written and the cart deleted in one
// transaction; any failure leaves all three untouched.
func (s *Service) PlaceOrder(ctx context.Context, actor identity.Actor, in PlaceOrderInput) (domain.Order, error) {
	if err := access.Authorize(access.OrderPlace, actor, access.Resource{}); err != nil {
		return domain.Order{}, err
	}
	in, err := in.Validate()
	if err != nil {
		return domain.Order{}, err
	}

	var placed domain.Order
	var moved []inventory.Movement
	err = s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		c, err := st.Carts.GetForUpdate(ctx, actor.ID)
		if errors.Is(err, cart.ErrCartNotFound) || (err == nil && c.IsEmpty()) {
			return apperr.NotFound("cart is empty")
		}
		if err != nil {
			return err
		}

		ledger := inventoryapp.NewLedger(s.log, st.Products)
		for _, it := range byProduct(c.Items, func(it cart.Item) string { return it.ProductID }) {
			if _, err := ledger.Reserve(ctx, it.ProductID, it.Quantity); err != nil {
				return reserveError(err, it.Title)
			}
		}

		seq, err := st.Orders.NextNumber(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		o := domain.New(s.newID(), domain.FormatNumber(now, seq), actor.ID, in.Address, in.ContactNumber, lineItems(c.Items), now)
		if err := st.Orders.Create(ctx, o); err != nil {
			return err
		}
		if err := st.Carts.Delete(ctx, actor.ID); err != nil {
			return err
		}
		if err := s.emit(ctx, st, o, actor.Email, actor.Name, ""); err != nil {
			return err
		}
		placed, moved = o, ledger.Movements()
		return nil
	})
	if err != nil {
		return domain.Order{}, apperr.Internalize(err, "failed to place order")
	}

	s.committed(placed, moved)
	s.log.Info("order placed", "order_id", placed.ID, "order_no", placed.Number, "user_id", actor.ID, "total_cents", placed.TotalCents)
	return placed, nil
}

// CancelOrder cancels a pending order and puts its stock back.
func (s *Service) CancelOrder(ctx context.Context, actor identity.Actor, orderID string) (domain.Order, error) {
	if err := validateOrderID(orderID); err != nil {
		return domain.Order{}, err
	}

	var cancelled domain.Order
	var moved []inventory.Movement
	err := s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		o, err := st.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return translate(err)
		}
		if err := access.Authorize(access.OrderCancel, actor, resourceOf(o)); err != nil {
			return err
		}
		if err := o.Cancel(s.now()); err != nil {
			return translate(err)
		}

		ledger := inventoryapp.NewLedger(s.log, st.Products)
		for _, li := range byProduct(o.Items, func(li domain.LineItem) string { return li.ProductID }) {
			if err := ledger.Release(ctx, li.ProductID, li.Quantity); err != nil {
				return err
			}
		}
		if err := st.Orders.Update(ctx, o); err != nil {
			return err
		}
		email, name, err := s.customer(ctx, st, o.UserID, actor)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, st, o, email, name, ""); err != nil {
			return err
		}
		cancelled, moved = o, ledger.Movements()
		return nil
	})
	if err != nil {
		return domain.Order{}, apperr.Internalize(err, "failed to cancel order")
	}

	s.committed(cancelled, moved)
	s.log.Info("order cancelled", "order_id", cancelled.ID, "by", actor.ID)
	return cancelled, nil
}

// AssignRider ships a pending order with an available rider. The rider is
// marked unavailable until the delivery is closed.
func (s *Service) AssignRider(ctx context.Context, actor identity.Actor, in AssignRiderInput) (domain.Order, error) {
	if err := access.Authorize(access.OrderAssign, actor, access.Resource{}); err != nil {
		return domain.Order{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}

	var shipped domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		o, err := st.Orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return translate(err)
		}
		if err := o.Ship(in.RiderID, s.now()); err != nil {
			return translate(err)
		}

		rider, err := st.Users.GetForUpdate(ctx, in.RiderID)
		if errors.Is(err, identity.ErrUserNotFound) {
			return apperr.NotFound("rider not found")
		}
		if err != nil {
			return err
		}
		if rider.Role != identity.RoleRider {
			return apperr.InvalidInput("selected user is not a rider")
		}
		if !rider.IsActive {
			return apperr.InvalidState("rider is already on an active delivery")
		}

		if err := st.Orders.Update(ctx, o); err != nil {
			return err
		}
		if err := st.Users.SetActive(ctx, rider.ID, false); err != nil {
			return err
		}
		email, name, err := s.customer(ctx, st, o.UserID, actor)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, st, o, email, name, rider.FullName()); err != nil {
			return err
		}
		shipped = o
		return nil
	})
	if err != nil {
		return domain.Order{}, apperr.Internalize(err, "failed to assign order")
	}

	s.committed(shipped, nil)
	s.log.Info("order assigned", "order_id", shipped.ID, "rider_id", in.RiderID, "by", actor.ID)
	return shipped, nil
}

// UpdateDeliveryStatus closes a shipped order as Delivered or Cancelled and
// frees the rider. A cancellation at this point does not restock: the goods
// have left the store.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, actor identity.Actor, orderID, status string) (domain.Order, error) {
	if err := validateOrderID(orderID); err != nil {
		return domain.Order{}, err
	}
	to, err := validateDeliveryStatus(status)
	if err != nil {
		return domain.Order{}, err
	}

	var closed domain.Order
	err = s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		o, err := st.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return translate(err)
		}
		if err := access.Authorize(access.OrderUpdateDelivery, actor, resourceOf(o)); err != nil {
			return err
		}
		if err := o.Complete(to, s.now()); err != nil {
			return translate(err)
		}
		if err := st.Orders.Update(ctx, o); err != nil {
			return err
		}

		if o.AssignedRider != "" {
			err := st.Users.SetActive(ctx, o.AssignedRider, true)
			if errors.Is(err, identity.ErrUserNotFound) {
				s.log.Warn("assigned rider no longer exists", "order_id", o.ID, "rider_id", o.AssignedRider)
			} else if err != nil {
				return err
			}
		}

		email, name, err := s.customer(ctx, st, o.UserID, actor)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, st, o, email, name, ""); err != nil {
			return err
		}
		closed = o
		return nil
	})
	if err != nil {
		return domain.Order{}, apperr.Internalize(err, "failed to update order status")
	}

	s.committed(closed, nil)
	s.log.Info("order status updated", "order_id", closed.ID, "status", closed.Status, "by", actor.ID)
	return closed, nil
}

func (s *Service) AddFeedback(ctx context.Context, actor identity.Actor, orderID, feedback string) (domain.Order, error) {
	if err := validateOrderID(orderID); err != nil {
		return domain.Order{}, err
	}
	feedback, err := validateFeedback(feedback)
	if err != nil {
		return domain.Order{}, err
	}

	var reviewed domain.Order
	err = s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		o, err := st.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return translate(err)
		}
		if err := access.Authorize(access.OrderFeedback, actor, resourceOf(o)); err != nil {
			return err
		}
		if err := o.AddFeedback(feedback, s.now()); err != nil {
			return translate(err)
		}
		if err := st.Orders.Update(ctx, o); err != nil {
			return err
		}
		reviewed = o
		return nil
	})
	if err != nil {
		return domain.Order{}, apperr.Internalize(err, "failed to add feedback")
	}
	return reviewed, nil
}

func (s *Service) GetOrder(ctx context.Context, actor identity.Actor, orderID string) (domain.Order, error) {
	if err := validateOrderID(orderID); err != nil {
		return domain.Order{}, err
	}
	o, err := s.reads.Orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, apperr.Internalize(translate(err), "failed to load order")
	}
	if err := access.Authorize(access.OrderView, actor, resourceOf(o)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Service) ListUserOrders(ctx context.Context, actor identity.Actor, p ListParams) (domain.Page, error) {
	if err := access.Authorize(access.OrderListOwn, actor, access.Resource{}); err != nil {
		return domain.Page{}, err
	}
	q, err := parseList(p)
	if err != nil {
		return domain.Page{}, err
	}
	q.UserID = actor.ID
	return s.list(ctx, q)
}

func (s *Service) ListAllOrders(ctx context.Context, actor identity.Actor, p ListParams) (domain.Page, error) {
	if err := access.Authorize(access.OrderListAll, actor, access.Resource{}); err != nil {
		return domain.Page{}, err
	}
	q, err := parseList(p)
	if err != nil {
		return domain.Page{}, err
	}
	return s.list(ctx, q)
}

// ListRiderOrders lists the caller's deliveries. Pending orders are never
// assigned to a rider, so a Pending filter falls back to the default.
func (s *Service) ListRiderOrders(ctx context.Context, actor identity.Actor, p ListParams) (domain.Page, error) {
	if err := access.Authorize(access.OrderListRider, actor, access.Resource{}); err != nil {
		return domain.Page{}, err
	}
	q, err := parseList(p)
	if err != nil {
		return domain.Page{}, err
	}
	q.RiderID = actor.ID
	if q.Status == "" || q.Status == domain.StatusPending {
		q.Status = ""
		q.ExcludePending = true
	}
	return s.list(ctx, q)
}

func (s *Service) list(ctx context.Context, q domain.Query) (domain.Page, error) {
	orders, total, err := s.reads.Orders.List(ctx, q)
	if err != nil {
		return domain.Page{}, apperr.Internalize(err, "failed to list orders")
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return domain.Page{Orders: orders, Page: q.Page, Limit: q.Limit, Total: total}, nil
}

func (s *Service) SalesSummary(ctx context.Context, actor identity.Actor) (domain.Summary, error) {
	if err := access.Authorize(access.AnalyticsView, actor, access.Resource{}); err != nil {
		return domain.Summary{}, err
	}
	revenue, orders, err := s.reads.Orders.Revenue(ctx)
	if err != nil {
		return domain.Summary{}, apperr.Internalize(err, "failed to load analytics")
	}
	products, err := s.reads.Products.Count(ctx)
	if err != nil {
		return domain.Summary{}, apperr.Internalize(err, "failed to load analytics")
	}
	users, err := s.reads.Users.Count(ctx)
	if err != nil {
		return domain.Summary{}, apperr.Internalize(err, "failed to load analytics")
	}
	recent, _, err := s.reads.Orders.List(ctx, domain.Query{Page: 1, Limit: recentOrdersLimit})
	if err != nil {
		return domain.Summary{}, apperr.Internalize(err, "failed to load analytics")
	}
	if recent == nil {
		recent = []domain.Order{}
	}
	return domain.Summary{
		RevenueCents:  revenue,
		TotalOrders:   orders,
		TotalProducts: products,
		TotalUsers:    users,
		RecentOrders:  recent,
	}, nil
}

// SalesOverview buckets non-cancelled sales by month or year.
func (s *Service) SalesOverview(ctx context.Context, actor identity.Actor, p SalesParams) ([]domain.SalesBucket, error) {
	if err := access.Authorize(access.AnalyticsView, actor, access.Resource{}); err != nil {
		return nil, err
	}
	from, to, by, err := parseSales(p, s.now())
	if err != nil {
		return nil, err
	}
	buckets, err := s.reads.Orders.Sales(ctx, from, to, by)
	if err != nil {
		return nil, apperr.Internalize(err, "failed to load sales overview")
	}
	if buckets == nil {
		buckets = []domain.SalesBucket{}
	}
	return buckets, nil
}

// emit appends the event for o's current status to the outbox of the
// running transaction.
func (s *Service) emit(ctx context.Context, st Stores, o domain.Order, email, name, riderName string) error {
	payload := domain.NewEvent(o, email, name)
	payload.RiderName = riderName
	ev, err := outbox.NewEvent(ctx, domain.AggregateType, o.ID, domain.EventTypeFor(o.Status), payload, map[string]string{"source": s.source})
	if err != nil {
		return err
	}
	return st.Events.Append(ctx, ev)
}

// customer resolves where notifications about an order go.
func (s *Service) customer(ctx context.Context, st Stores, userID string, actor identity.Actor) (string, string, error) {
	if userID == actor.ID {
		return actor.Email, actor.Name, nil
	}
	u, err := st.Users.Get(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return u.Email, u.FullName(), nil
}

func (s *Service) committed(o domain.Order, moved []inventory.Movement) {
	metrics.OrdersTotal.WithLabelValues(string(o.Status)).Inc()
	for _, m := range moved {
		metrics.StockUnitsTotal.WithLabelValues(string(m.Direction)).Add(float64(m.Quantity))
	}
}

func resourceOf(o domain.Order) access.Resource {
	return access.Resource{OwnerID: o.UserID, RiderID: o.AssignedRider}
}

// byProduct returns items ordered by product id. Every transaction locks
// product rows in this order, so two placements sharing products cannot
// deadlock.
func byProduct[T any](items []T, key func(T) string) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int { return strings.Compare(key(a), key(b)) })
	return out
}

func lineItems(items []cart.Item) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.LineItem{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
			Title:      it.Title,
		})
	}
	return out
}

func reserveError(err error, title string) error {
	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return apperr.New(apperr.KindInsufficientStock, "not enough stock for %s. Available: %d", title, stockErr.Available)
	case errors.Is(err, inventory.ErrProductNotFound):
		return apperr.NotFound("product %s no longer exists", title)
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return apperr.InvalidInput("invalid quantity for %s", title)
	}
	return err
}

func translate(err error) error {
	var te *domain.TransitionError
	switch {
	case errors.As(err, &te):
		return apperr.InvalidState("%s", te.Reason)
	case errors.Is(err, domain.ErrOrderNotFound):
		return apperr.NotFound("order not found")
	case errors.Is(err, domain.ErrInvalidDeliveryStatus), errors.Is(err, domain.ErrEmptyFeedback):
		return apperr.InvalidInput("%s", err.Error())
	}
	return err
}
