package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, productID string) (Product, error)
	DecrementOnHand(ctx context.Context, tx pgx.Tx, productID string, qty int) (remaining int, err error)
	SetOnHand(ctx context.Context, productID string, onHand int) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const productSelect = `
		SELECT p.id, p.sku, p.title, p.brand, p.price,
		       COALESCE(i.on_hand, 0), COALESCE(i.on_order, 0), COALESCE(i.backorderable, false),
		       p.updated_at
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.id = $1`

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, productSelect, productID))
}

// FOR UPDATE cannot lock the nullable side of an outer join, so the locking
// select inner-joins inventory.
const productLockSelect = `
		SELECT p.id, p.sku, p.title, p.brand, p.price,
		       i.on_hand, i.on_order, i.backorderable,
		       p.updated_at
		FROM products p
		JOIN inventory i ON i.product_id = p.id
		WHERE p.id = $1
		FOR UPDATE OF i`

// GetForUpdate locks the product's inventory row for the duration of tx so
// the availability check and the later decrement act as one atomic region.
// A product with no inventory row has nothing to lock and falls back to the
// plain read, which reports it as zero stock.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, productID string) (Product, error) {
	p, err := scanProduct(tx.QueryRow(ctx, productLockSelect, productID))
	if errors.Is(err, ErrNotFound) {
		return scanProduct(tx.QueryRow(ctx, productSelect, productID))
	}
	return p, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Title, &p.Brand, &p.Price,
		&p.OnHand, &p.OnOrder, &p.Backorderable, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

// DecrementOnHand subtracts qty from the product's on-hand count inside tx.
// The caller must hold the row lock from GetForUpdate. The floor at zero is a
// safety net for backorderable products sold past their on-hand count.
func (r *PostgresRepository) DecrementOnHand(ctx context.Context, tx pgx.Tx, productID string, qty int) (int, error) {
	var remaining int
	err := tx.QueryRow(ctx, `
		UPDATE inventory
		SET on_hand = GREATEST(on_hand - $2, 0), updated_at = now()
		WHERE product_id = $1
		RETURNING on_hand
	`, productID, qty).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("decrement on_hand: %w", err)
	}
	return remaining, nil
}

func (r *PostgresRepository) SetOnHand(ctx context.Context, productID string, onHand int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory (product_id, on_hand)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET on_hand = EXCLUDED.on_hand, updated_at = now()
	`, productID, onHand)
	if err != nil {
		return fmt.Errorf("set on_hand: %w", err)
	}
	return nil
}
