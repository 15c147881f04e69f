package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// querier is satisfied by both DBPool and pgx.Tx so the same scan helpers
// serve plain calls and the checkout transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	GetOrCreate(ctx context.Context, sessionID string) (*Cart, error)
	GetBySession(ctx context.Context, sessionID string) (*Cart, error)
	GetBySessionTx(ctx context.Context, tx pgx.Tx, sessionID string) (*Cart, error)
	GetItem(ctx context.Context, cartID, itemID string) (*Item, error)
	InsertItem(ctx context.Context, it *Item) error
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error
	DeleteItem(ctx context.Context, itemID string) error
	ClearBySession(ctx context.Context, sessionID string) error
	ClearItemsTx(ctx context.Context, tx pgx.Tx, cartID string) error
	Touch(ctx context.Context, cartID string) error
	Count(ctx context.Context, sessionID string) (int, error)
}

type repo struct {
	pool DBPool
}

func NewRepository(pool DBPool) Repository {
	return &repo{pool: pool}
}

// GetOrCreate returns the session's cart, creating an empty one on first
// touch. The no-op DO UPDATE makes RETURNING yield a row on conflict too, so
// concurrent first touches converge on one cart per session.
func (r *repo) GetOrCreate(ctx context.Context, sessionID string) (*Cart, error) {
	var c Cart
	err := r.pool.QueryRow(ctx, `
		INSERT INTO carts (id, session_id, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING id, session_id, user_id, created_at, updated_at
	`, uuid.NewString(), sessionID).Scan(&c.ID, &c.SessionID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}

	if err := loadItems(ctx, r.pool, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) GetBySession(ctx context.Context, sessionID string) (*Cart, error) {
	return getBySession(ctx, r.pool, sessionID)
}

func (r *repo) GetBySessionTx(ctx context.Context, tx pgx.Tx, sessionID string) (*Cart, error) {
	return getBySession(ctx, tx, sessionID)
}

func getBySession(ctx context.Context, q querier, sessionID string) (*Cart, error) {
	var c Cart
	err := q.QueryRow(ctx,
		`SELECT id, session_id, user_id, created_at, updated_at FROM carts WHERE session_id = $1`,
		sessionID,
	).Scan(&c.ID, &c.SessionID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// caller decides whether an absent cart is an error
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	if err := loadItems(ctx, q, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadItems(ctx context.Context, q querier, c *Cart) error {
	rows, err := q.Query(ctx, `
		SELECT id, cart_id, product_id, quantity, price, created_at, updated_at
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at
	`, c.ID)
	if err != nil {
		return fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return fmt.Errorf("scan cart_item: %w", err)
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func (r *repo) GetItem(ctx context.Context, cartID, itemID string) (*Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx, `
		SELECT id, cart_id, product_id, quantity, price, created_at, updated_at
		FROM cart_items WHERE id = $1 AND cart_id = $2
	`, itemID, cartID).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.Price, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cart_item: %w", err)
	}
	return &it, nil
}

func (r *repo) InsertItem(ctx context.Context, it *Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`, it.ID, it.CartID, it.ProductID, it.Quantity, it.Price)
	if err != nil {
		return fmt.Errorf("insert cart_item: %w", err)
	}
	return nil
}

func (r *repo) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1`,
		itemID, quantity)
	if err != nil {
		return fmt.Errorf("update cart_item: %w", err)
	}
	return nil
}

func (r *repo) DeleteItem(ctx context.Context, itemID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart_item: %w", err)
	}
	return nil
}

// ClearBySession removes all items from the session's cart. Clearing an
// absent cart is a no-op.
func (r *repo) ClearBySession(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE session_id = $1)
	`, sessionID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *repo) ClearItemsTx(ctx context.Context, tx pgx.Tx, cartID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart_items: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func (r *repo) Touch(ctx context.Context, cartID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// Count never creates a cart: an absent session simply aggregates to zero.
func (r *repo) Count(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity), 0)
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		WHERE c.session_id = $1
	`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return n, nil
}
