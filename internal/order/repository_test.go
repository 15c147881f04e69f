package order

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{
	"id", "order_number", "session_id", "status",
	"customer_email", "customer_name", "customer_phone",
	"billing_address_line1", "billing_address_line2", "billing_city", "billing_state", "billing_zip", "billing_country",
	"shipping_address_line1", "shipping_address_line2", "shipping_city", "shipping_state", "shipping_zip", "shipping_country",
	"subtotal", "tax_amount", "shipping_amount", "discount_amount", "total_amount",
	"payment_method", "payment_status", "payment_reference",
	"created_at", "updated_at", "shipped_at", "delivered_at",
}

var itemCols = []string{
	"id", "order_id", "product_id", "product_sku", "product_title", "product_brand",
	"quantity", "unit_price", "total_price", "created_at",
}

func orderRow(now time.Time) []any {
	return []any{
		"o1", "MET-20260901-0001", "sess-1", Status("pending"),
		"jane@example.com", "Jane Driver", "",
		"1 Main St", "", "Austin", "TX", "78701", "US",
		"1 Main St", "", "Austin", "TX", "78701", "US",
		decimal.RequireFromString("100.00"), decimal.RequireFromString("8.00"),
		decimal.RequireFromString("25.00"), decimal.RequireFromString("0.00"),
		decimal.RequireFromString("133.00"),
		"credit_card", PaymentStatus("pending"), "",
		now, now, nil, nil,
	}
}

func TestGetByNumber(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE order_number = $1")).
		WithArgs("MET-20260901-0001").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(orderRow(now)...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_items")).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow("oi1", "o1", "p1", "MET-7811", "GTX 2867R Turbocharger", "Garrett",
				1, decimal.RequireFromString("100.00"), decimal.RequireFromString("100.00"), now))

	o, err := repo.GetByNumber(context.Background(), "MET-20260901-0001")
	require.NoError(t, err)
	require.Equal(t, "MET-20260901-0001", o.OrderNumber)
	require.Len(t, o.Items, 1)
	require.Equal(t, 1, o.TotalItems())
	require.True(t, o.TotalAmount.Equal(decimal.RequireFromString("133.00")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNumberMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE order_number = $1")).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows(orderCols))

	_, err = repo.GetByNumber(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE orders SET")).
		WithArgs("missing", StatusShipped).
		WillReturnRows(pgxmock.NewRows(orderCols))

	_, err = repo.UpdateStatus(context.Background(), "missing", StatusShipped)
	require.ErrorIs(t, err, ErrNotFound)
}

// anyArgs returns n pgxmock.AnyArg() matchers: pgxmock/v4 requires the
// expected and actual argument counts to match even when the values are
// not being checked.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCreateWithTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	ctx := context.Background()
	now := time.Now()

	o := &Order{
		OrderNumber:   "MET-20260901-0042",
		SessionID:     "sess-1",
		Status:        StatusPending,
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Driver",
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items: []Item{
			{ProductID: "p1", ProductSKU: "MET-7811", ProductTitle: "Turbo", Quantity: 1,
				UnitPrice: decimal.RequireFromString("100.00"), TotalPrice: decimal.RequireFromString("100.00")},
			{ProductID: "p2", ProductSKU: "MET-5432", ProductTitle: "Intercooler", Quantity: 2,
				UnitPrice: decimal.RequireFromString("50.00"), TotalPrice: decimal.RequireFromString("100.00")},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs(anyArgs(29)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.CreateWithTx(ctx, tx, o))
	require.NotEmpty(t, o.ID)
	require.Equal(t, o.ID, o.Items[0].OrderID)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNumberExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("MET-20260901-0001").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	exists, err := repo.NumberExists(ctx, tx, "MET-20260901-0001")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, tx.Rollback(ctx))
}

func TestStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "processing", "shipped", "revenue"}).
			AddRow(10, 3, 2, 1, decimal.RequireFromString("1234.56")))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10")).
		WillReturnRows(pgxmock.NewRows([]string{"order_number", "customer_name", "total_amount", "status", "created_at"}).
			AddRow("MET-20260901-0007", "Jane Driver", decimal.RequireFromString("133.00"), StatusPending, now).
			AddRow("MET-20260831-0004", "Sam Wrench", decimal.RequireFromString("1402.92"), StatusShipped, now.Add(-time.Hour)))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, s.TotalOrders)
	require.Equal(t, 3, s.PendingOrders)
	require.True(t, s.TotalRevenue.Equal(decimal.RequireFromString("1234.56")))
	require.Len(t, s.RecentOrders, 2)
	require.Equal(t, "MET-20260901-0007", s.RecentOrders[0].OrderNumber)
	require.Equal(t, StatusShipped, s.RecentOrders[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsNoOrders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WillReturnRows(pgxmock.NewRows([]string{"total", "pending", "processing", "shipped", "revenue"}).
			AddRow(0, 0, 0, 0, decimal.Zero))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT 10")).
		WillReturnRows(pgxmock.NewRows([]string{"order_number", "customer_name", "total_amount", "status", "created_at"}))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.RecentOrders)
	require.Empty(t, s.RecentOrders)
}
