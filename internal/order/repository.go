package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type ListFilter struct {
	Status  string
	Page    int
	PerPage int
}

type Repository interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error
	NumberExists(ctx context.Context, tx pgx.Tx, number string) (bool, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	Stats(ctx context.Context) (Stats, error)
	UpdateStatus(ctx context.Context, orderNumber string, status Status) (*Order, error)
	ConfirmPayment(ctx context.Context, orderNumber, paymentReference string) (*Order, Status, error)
}

type repo struct {
	pool DBPool
}

func NewRepository(pool DBPool) Repository {
	return &repo{pool: pool}
}

const orderColumns = `id, order_number, session_id, status,
	customer_email, customer_name, customer_phone,
	billing_address_line1, billing_address_line2, billing_city, billing_state, billing_zip, billing_country,
	shipping_address_line1, shipping_address_line2, shipping_city, shipping_state, shipping_zip, shipping_country,
	subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
	payment_method, payment_status, payment_reference,
	created_at, updated_at, shipped_at, delivered_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.SessionID, &o.Status,
		&o.CustomerEmail, &o.CustomerName, &o.CustomerPhone,
		&o.BillingAddress.Line1, &o.BillingAddress.Line2, &o.BillingAddress.City,
		&o.BillingAddress.State, &o.BillingAddress.Zip, &o.BillingAddress.Country,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.State, &o.ShippingAddress.Zip, &o.ShippingAddress.Country,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentReference,
		&o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateWithTx inserts the order and its line items inside the caller's
// transaction; the checkout owns commit and rollback.
func (r *repo) CreateWithTx(ctx context.Context, tx pgx.Tx, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_number, session_id, status,
			customer_email, customer_name, customer_phone,
			billing_address_line1, billing_address_line2, billing_city, billing_state, billing_zip, billing_country,
			shipping_address_line1, shipping_address_line2, shipping_city, shipping_state, shipping_zip, shipping_country,
			subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
			payment_method, payment_status, payment_reference,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`,
		o.ID, o.OrderNumber, o.SessionID, o.Status,
		o.CustomerEmail, o.CustomerName, o.CustomerPhone,
		o.BillingAddress.Line1, o.BillingAddress.Line2, o.BillingAddress.City,
		o.BillingAddress.State, o.BillingAddress.Zip, o.BillingAddress.Country,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.State, o.ShippingAddress.Zip, o.ShippingAddress.Country,
		o.Subtotal, o.TaxAmount, o.ShippingAmount, o.DiscountAmount, o.TotalAmount,
		o.PaymentMethod, o.PaymentStatus, o.PaymentReference,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		it.OrderID = o.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, product_sku, product_title, product_brand,
				quantity, unit_price, total_price, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, it.ID, it.OrderID, it.ProductID, it.ProductSKU, it.ProductTitle, it.ProductBrand,
			it.Quantity, it.UnitPrice, it.TotalPrice, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	return nil
}

func (r *repo) NumberExists(ctx context.Context, tx pgx.Tx, number string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order_number: %w", err)
	}
	return exists, nil
}

func (r *repo) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return r.getBy(ctx, `WHERE order_number = $1`, orderNumber)
}

func (r *repo) getBy(ctx context.Context, where string, arg any) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_sku, product_title, product_brand,
		       quantity, unit_price, total_price, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id
	`, o.ID)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductSKU, &it.ProductTitle,
			&it.ProductBrand, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.CreatedAt); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, f.Status,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, f.Status, f.PerPage, (f.Page-1)*f.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, 0, err
		}
	}

	return orders, total, nil
}

func (r *repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'shipped'),
			COALESCE(SUM(total_amount) FILTER (
				WHERE status IN ('confirmed', 'processing', 'shipped', 'delivered')
			), 0)
		FROM orders
	`).Scan(&s.TotalOrders, &s.PendingOrders, &s.ProcessingOrders, &s.ShippedOrders, &s.TotalRevenue)
	if err != nil {
		return Stats{}, fmt.Errorf("order stats: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT order_number, customer_name, total_amount, status, created_at
		FROM orders
		ORDER BY created_at DESC, id
		LIMIT 10
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("recent orders: %w", err)
	}
	defer rows.Close()

	s.RecentOrders = []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.OrderNumber, &sum.CustomerName, &sum.TotalAmount, &sum.Status, &sum.CreatedAt); err != nil {
			return Stats{}, fmt.Errorf("scan recent order: %w", err)
		}
		s.RecentOrders = append(s.RecentOrders, sum)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("rows: %w", err)
	}
	return s, nil
}

// UpdateStatus writes the new status and stamps shipped_at/delivered_at on
// first entry only; re-entering the same status never overwrites a stamp.
func (r *repo) UpdateStatus(ctx context.Context, orderNumber string, status Status) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `
		UPDATE orders SET
			status = $2,
			updated_at = now(),
			shipped_at = CASE WHEN $2 = 'shipped' AND shipped_at IS NULL THEN now() ELSE shipped_at END,
			delivered_at = CASE WHEN $2 = 'delivered' AND delivered_at IS NULL THEN now() ELSE delivered_at END
		WHERE order_number = $1
		RETURNING `+orderColumns, orderNumber, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ConfirmPayment marks the order paid and forces status to confirmed,
// returning the status the order held before the write so the caller can
// flag regressions from terminal states.
func (r *repo) ConfirmPayment(ctx context.Context, orderNumber, paymentReference string) (*Order, Status, error) {
	var prior Status
	row := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status FROM orders WHERE order_number = $1
		)
		UPDATE orders o SET
			payment_status = 'paid',
			payment_reference = $2,
			status = 'confirmed',
			updated_at = now()
		FROM prev
		WHERE o.id = prev.id
		RETURNING prev.status, `+prefixedOrderColumns("o."), orderNumber, paymentReference)

	var o Order
	err := row.Scan(
		&prior,
		&o.ID, &o.OrderNumber, &o.SessionID, &o.Status,
		&o.CustomerEmail, &o.CustomerName, &o.CustomerPhone,
		&o.BillingAddress.Line1, &o.BillingAddress.Line2, &o.BillingAddress.City,
		&o.BillingAddress.State, &o.BillingAddress.Zip, &o.BillingAddress.Country,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.State, &o.ShippingAddress.Zip, &o.ShippingAddress.Country,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentReference,
		&o.CreatedAt, &o.UpdatedAt, &o.ShippedAt, &o.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("confirm payment: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, "", err
	}
	return &o, prior, nil
}

func prefixedOrderColumns(prefix string) string {
	cols := []string{
		"id", "order_number", "session_id", "status",
		"customer_email", "customer_name", "customer_phone",
		"billing_address_line1", "billing_address_line2", "billing_city", "billing_state", "billing_zip", "billing_country",
		"shipping_address_line1", "shipping_address_line2", "shipping_city", "shipping_state", "shipping_zip", "shipping_country",
		"subtotal", "tax_amount", "shipping_amount", "discount_amount", "total_amount",
		"payment_method", "payment_status", "payment_reference",
		"created_at", "updated_at", "shipped_at", "delivered_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += prefix + c
	}
	return out
}
