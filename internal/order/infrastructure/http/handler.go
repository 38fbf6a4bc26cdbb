package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/internal/order/application"
	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, actor identity.Actor, in application.PlaceOrderInput) (domain.Order, error)
	CancelOrder(ctx context.Context, actor identity.Actor, orderID string) (domain.Order, error)
	AssignRider(ctx context.Context, actor identity.Actor, in application.AssignRiderInput) (domain.Order, error)
	UpdateDeliveryStatus(ctx context.Context, actor identity.Actor, orderID, status string) (domain.Order, error)
	AddFeedback(ctx context.Context, actor identity.Actor, orderID, feedback string) (domain.Order, error)
	GetOrder(ctx context.Context, actor identity.Actor, orderID string) (domain.Order, error)
	ListUserOrders(ctx context.Context, actor identity.Actor, p application.ListParams) (domain.Page, error)
	ListAllOrders(ctx context.Context, actor identity.Actor, p application.ListParams) (domain.Page, error)
	ListRiderOrders(ctx context.Context, actor identity.Actor, p application.ListParams) (domain.Page, error)
	SalesSummary(ctx context.Context, actor identity.Actor) (domain.Summary, error)
	SalesOverview(ctx context.Context, actor identity.Actor, p application.SalesParams) ([]domain.SalesBucket, error)
}

type Handler struct {
	log     *slog.Logger
	service OrderService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service OrderService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes serves /orders. placeMiddleware wraps only the placement endpoint.
func (h *Handler) Routes(placeMiddleware ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.With(placeMiddleware...).Post("/", h.placeOrder)
	r.Get("/", h.listUserOrders)
	r.Get("/all", h.listAllOrders)
	r.Get("/rider", h.listRiderOrders)
	r.Post("/assign", h.assignRider)
	r.Get("/{orderId}", h.getOrder)
	r.Put("/{orderId}/cancel", h.cancelOrder)
	r.Put("/{orderId}/status", h.updateStatus)
	r.Put("/{orderId}/feedback", h.addFeedback)
	return r
}

// AnalyticsRoutes serves /analytics.
func (h *Handler) AnalyticsRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/summary", h.summary)
	r.Get("/sales", h.salesOverview)
	return r
}

type lineItemDTO struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Title     string          `json:"title"`
}

type orderDTO struct {
	ID            string          `json:"id"`
	OrderNo       string          `json:"orderNo"`
	UserID        string          `json:"userId"`
	Items         []lineItemDTO   `json:"orderItems"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Status        domain.Status   `json:"status"`
	Address       string          `json:"address"`
	ContactNumber string          `json:"contactNumber"`
	AssignedRider *string         `json:"assignedRider"`
	Feedback      *string         `json:"feedback"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type paginationDTO struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type pageDTO struct {
	Orders     []orderDTO    `json:"orders"`
	Pagination paginationDTO `json:"pagination"`
}

type summaryDTO struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalOrders   int             `json:"totalOrders"`
	TotalProducts int             `json:"totalProducts"`
	TotalUsers    int             `json:"totalUsers"`
	RecentOrders  []orderDTO      `json:"recentOrders"`
}

type salesDTO struct {
	Period        string          `json:"period"`
	Year          int             `json:"year"`
	Month         int             `json:"month,omitempty"`
	Sales         decimal.Decimal `json:"sales"`
	Orders        int             `json:"orders"`
	AvgOrderValue decimal.Decimal `json:"avgOrderValue"`
}

func money(cents int64) decimal.Decimal { return decimal.New(cents, -2) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toDTO(o domain.Order) orderDTO {
	items := make([]lineItemDTO, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, lineItemDTO{ProductID: li.ProductID, Quantity: li.Quantity, Price: money(li.PriceCents), Title: li.Title})
	}
	return orderDTO{
		ID:            o.ID,
		OrderNo:       o.Number,
		UserID:        o.UserID,
		Items:         items,
		TotalPrice:    money(o.TotalCents),
		Status:        o.Status,
		Address:       o.Address,
		ContactNumber: o.ContactNumber,
		AssignedRider: optional(o.AssignedRider),
		Feedback:      optional(o.Feedback),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toDTOs(orders []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toDTO(o))
	}
	return out
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req application.PlaceOrderInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	actor, _ := identity.ActorFrom(ctx)
	o, err := h.service.PlaceOrder(ctx, actor, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID), attribute.String("order.no", o.Number))
	httpx.JSON(w, http.StatusCreated, toDTO(o), "Order placed successfully")
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	actor, _ := identity.ActorFrom(ctx)
	o, err := h.service.GetOrder(ctx, actor, chi.URLParam(r, "orderId"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(o), "Order fetched successfully")
}

type listFunc func(ctx context.Context, actor identity.Actor, p application.ListParams) (domain.Page, error)

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListUserOrders", h.service.ListUserOrders, "Orders fetched successfully")
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListAllOrders", h.service.ListAllOrders, "All orders fetched successfully")
}

func (h *Handler) listRiderOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "ListRiderOrders", h.service.ListRiderOrders, "Rider orders fetched successfully")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, spanName string, fn listFunc, msg string) {
	ctx, span := h.tracer.Start(r.Context(), spanName)
	defer span.End()

	q := r.URL.Query()
	actor, _ := identity.ActorFrom(ctx)
	page, err := fn(ctx, actor, application.ListParams{Page: q.Get("page"), Limit: q.Get("limit"), Status: q.Get("status")})
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pageDTO{
		Orders:     toDTOs(page.Orders),
		Pagination: paginationDTO{Page: page.Page, Limit: page.Limit, Total: page.Total},
	}, msg)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	orderID := chi.URLParam(r, "orderId")
	span.SetAttributes(attribute.String("order.id", orderID))

	actor, _ := identity.ActorFrom(ctx)
	o, err := h.service.CancelOrder(ctx, actor, orderID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(o), "Order cancelled successfully")
}

func (h *Handler) assignRider(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AssignRider")
	defer span.End()

	var req application.AssignRiderInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID), attribute.String("rider.id", req.RiderID))

	actor, _ := identity.ActorFrom(ctx)
	o, err := h.service.AssignRider(ctx, actor, req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(o), "Order assigned to rider successfully")
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateDeliveryStatus")
	defer span.End()

	var req statusReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	actor, _ := identity.ActorFrom(ctx)
	o, err := h.service.UpdateDeliveryStatus(ctx, actor, chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(o), "Order status updated to "+string(o.Status))
}

type feedbackReq struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) addFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddFeedback")
	defer span.End()

	var req feedbackReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	actor, _ := identity.ActorFrom(ctx)
	o, err := h.service.AddFeedback(ctx, actor, chi.URLParam(r, "orderId"), req.Feedback)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(o), "Feedback added successfully")
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SalesSummary")
	defer span.End()

	actor, _ := identity.ActorFrom(ctx)
	s, err := h.service.SalesSummary(ctx, actor)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaryDTO{
		TotalRevenue:  money(s.RevenueCents),
		TotalOrders:   s.TotalOrders,
		TotalProducts: s.TotalProducts,
		TotalUsers:    s.TotalUsers,
		RecentOrders:  toDTOs(s.RecentOrders),
	}, "Analytics fetched successfully")
}

func (h *Handler) salesOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SalesOverview")
	defer span.End()

	q := r.URL.Query()
	actor, _ := identity.ActorFrom(ctx)
	buckets, err := h.service.SalesOverview(ctx, actor, application.SalesParams{
		From:    q.Get("startDate"),
		To:      q.Get("endDate"),
		GroupBy: q.Get("groupBy"),
	})
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	out := make([]salesDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, salesDTO{
			Period:        b.Label(),
			Year:          b.Year,
			Month:         b.Month,
			Sales:         money(b.SalesCents),
			Orders:        b.Orders,
			AvgOrderValue: money(b.AverageCents),
		})
	}
	httpx.JSON(w, http.StatusOK, out, "Sales overview retrieved successfully")
}
