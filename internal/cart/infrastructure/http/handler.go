package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/storefront/internal/cart/domain"
	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/pkg/httpx"
)

type CartService interface {
	GetCart(ctx context.Context, actor identity.Actor) (domain.Cart, error)
	AddItem(ctx context.Context, actor identity.Actor, productID string) (domain.Cart, error)
	IncrementItem(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error)
	DecrementItem(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error)
	RemoveItem(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error)
	Empty(ctx context.Context, actor identity.Actor) (bool, error)
}

type Handler struct {
	log     *slog.Logger
	service CartService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service CartService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("cart-http"),
	}
}

// Routes expects identity.Authenticate to have run.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.getCart)
	r.Delete("/", h.emptyCart)
	r.Post("/items/{productId}", h.addItem)
	r.Put("/items/{itemId}/increment", h.incrementItem)
	r.Put("/items/{itemId}/decrement", h.decrementItem)
	r.Delete("/items/{itemId}", h.removeItem)
	return r
}

type itemDTO struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
}

type cartDTO struct {
	ID         string          `json:"id,omitempty"`
	UserID     string          `json:"userId"`
	Items      []itemDTO       `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

func toDTO(c domain.Cart) cartDTO {
	items := make([]itemDTO, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, itemDTO{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     decimal.New(it.PriceCents, -2),
			Title:     it.Title,
			Image:     it.Image,
		})
	}
	return cartDTO{ID: c.ID, UserID: c.UserID, Items: items, TotalPrice: decimal.New(c.TotalCents, -2)}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	actor, _ := identity.ActorFrom(ctx)
	c, err := h.service.GetCart(ctx, actor)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	msg := "Cart fetched successfully"
	if c.IsEmpty() {
		msg = "Cart is empty"
	}
	httpx.JSON(w, http.StatusOK, toDTO(c), msg)
}

func (h *Handler) emptyCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "EmptyCart")
	defer span.End()

	actor, _ := identity.ActorFrom(ctx)
	existed, err := h.service.Empty(ctx, actor)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	msg := "Cart emptied successfully"
	if !existed {
		msg = "Cart already empty"
	}
	httpx.JSON(w, http.StatusOK, toDTO(domain.Empty(actor.ID)), msg)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	productID := chi.URLParam(r, "productId")
	span.SetAttributes(attribute.String("product.id", productID))

	actor, _ := identity.ActorFrom(ctx)
	c, err := h.service.AddItem(ctx, actor, productID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDTO(c), "Item added to cart successfully")
}

func (h *Handler) incrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, "IncrementCartItem", h.service.IncrementItem, "Item quantity increased")
}

func (h *Handler) decrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, "DecrementCartItem", h.service.DecrementItem, "Item quantity decreased")
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutateItem(w, r, "RemoveCartItem", h.service.RemoveItem, "Item removed from cart")
}

type itemOp func(ctx context.Context, actor identity.Actor, itemID string) (domain.Cart, error)

func (h *Handler) mutateItem(w http.ResponseWriter, r *http.Request, spanName string, op itemOp, msg string) {
	ctx, span := h.tracer.Start(r.Context(), spanName)
	defer span.End()

	itemID := chi.URLParam(r, "itemId")
	span.SetAttributes(attribute.String("cart.item_id", itemID))

	actor, _ := identity.ActorFrom(ctx)
	c, err := op(ctx, actor, itemID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if c.IsEmpty() {
		msg = "Item removed and cart is now empty"
	}
	httpx.JSON(w, http.StatusOK, toDTO(c), msg)
}
