package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/pgutil"
)

type Repository struct {
	log *slog.Logger
	db  pgutil.DBTX
}

func NewRepository(log *slog.Logger, db pgutil.DBTX) *Repository {
	return &Repository{log: log, db: db}
}

const orderColumns = `id, order_no, user_id, status, address, contact_number, total_cents, assigned_rider, feedback, created_at, updated_at`

func (r *Repository) NextNumber(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("next order number: %w", err)
	}
	return n, nil
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	_, err := r.db.Exec(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.Number, o.UserID, o.Status, o.Address, o.ContactNumber, o.TotalCents,
		nullable(o.AssignedRider), nullable(o.Feedback), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, position, product_id, quantity, price_cents, title)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, i, item.ProductID, item.Quantity, item.PriceCents, item.Title)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert items of order %s: %w", o.ID, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate locks the order row; its items never change and are read
// without a lock.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) get(ctx context.Context, query, id string) (domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if pgutil.IsNoRows(err) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	items, err := r.items(ctx, []string{o.ID})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repository) Update(ctx context.Context, o domain.Order) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $2, assigned_rider = $3, feedback = $4, total_cents = $5, updated_at = $6
		WHERE id = $1`,
		o.ID, o.Status, nullable(o.AssignedRider), nullable(o.Feedback), o.TotalCents, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, q domain.Query) ([]domain.Order, int, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if q.RiderID != "" {
		add("assigned_rider = $%d", q.RiderID)
	}
	if q.Status != "" {
		add("status = $%d", q.Status)
	}
	if q.ExcludePending {
		add("status <> $%d", domain.StatusPending)
	}
	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	pageArgs := append(args, q.Limit, q.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, filter, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	rows.Close()

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, total, nil
}

func (r *Repository) Revenue(ctx context.Context) (int64, int, error) {
	var revenue int64
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cents) FILTER (WHERE status <> 'Cancelled'), 0)::bigint, count(*)
		FROM orders`).Scan(&revenue, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sum revenue: %w", err)
	}
	return revenue, count, nil
}

func (r *Repository) Sales(ctx context.Context, from, to time.Time, by domain.Granularity) ([]domain.SalesBucket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT EXTRACT(YEAR FROM created_at)::int AS y,
		       CASE WHEN $3::text = 'month' THEN EXTRACT(MONTH FROM created_at)::int ELSE 0 END AS m,
		       SUM(total_cents)::bigint,
		       count(*)
		FROM orders
		WHERE status <> 'Cancelled' AND created_at BETWEEN $1 AND $2
		GROUP BY y, m
		ORDER BY y, m`, from, to, string(by))
	if err != nil {
		return nil, fmt.Errorf("sales overview: %w", err)
	}
	defer rows.Close()

	var out []domain.SalesBucket
	for rows.Next() {
		var b domain.SalesBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.SalesCents, &b.Orders); err != nil {
			return nil, fmt.Errorf("scan sales bucket: %w", err)
		}
		if b.Orders > 0 {
			b.AverageCents = b.SalesCents / int64(b.Orders)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) items(ctx context.Context, orderIDs []string) (map[string][]domain.LineItem, error) {
	out := make(map[string][]domain.LineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, quantity, price_cents, title
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var li domain.LineItem
		if err := rows.Scan(&orderID, &li.ProductID, &li.Quantity, &li.PriceCents, &li.Title); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		out[orderID] = append(out[orderID], li)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var rider, feedback *string
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.Address, &o.ContactNumber, &o.TotalCents,
		&rider, &feedback, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if rider != nil {
		o.AssignedRider = *rider
	}
	if feedback != nil {
		o.Feedback = *feedback
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
