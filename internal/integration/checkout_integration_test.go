//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/VanderajLS/metier-backend/internal/apperr"
	"github.com/VanderajLS/metier-backend/internal/cart"
	"github.com/VanderajLS/metier-backend/internal/catalog"
	"github.com/VanderajLS/metier-backend/internal/checkout"
	"github.com/VanderajLS/metier-backend/internal/db"
	httpapi "github.com/VanderajLS/metier-backend/internal/http"
	"github.com/VanderajLS/metier-backend/internal/order"
	"github.com/VanderajLS/metier-backend/internal/pricing"
)

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	pgC, dbURL := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	logger := log.New(io.Discard, "", log.LstdFlags)
	require.NoError(t, db.RunMigrations(dbURL, logger))

	pool, err := db.NewPool(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()

	seedProduct(ctx, t, pool, "p1", "MET-7811", "GTX 2867R Turbocharger", "750.00", 1)

	catalogRepo := catalog.NewPostgresRepository(pool)
	cartRepo := cart.NewRepository(pool)
	orderRepo := order.NewRepository(pool)

	cartSvc := cart.NewService(cartRepo, catalogRepo)
	checkoutSvc := checkout.NewService(pool, cartRepo, catalogRepo, orderRepo, pricing.Default(), nil, logger)

	sessions := []string{"race-a", "race-b"}
	for _, sid := range sessions {
		_, err := cartSvc.Add(ctx, sid, "p1", 1)
		require.NoError(t, err, "both carts may hold the last unit before checkout")
	}

	type result struct {
		order *order.Order
		err   error
	}
	results := make([]result, len(sessions))

	var wg sync.WaitGroup
	for i, sid := range sessions {
		wg.Add(1)
		go func(i int, sid string) {
			defer wg.Done()
			o, err := checkoutSvc.Checkout(ctx, sid, checkoutRequest())
			results[i] = result{order: o, err: err}
		}(i, sid)
	}
	wg.Wait()

	var winners, losers int
	var won *order.Order
	for _, res := range results {
		if res.err == nil {
			winners++
			won = res.order
			continue
		}
		losers++
		kind := apperr.KindOf(res.err)
		assert.Contains(t,
			[]apperr.Kind{apperr.KindOutOfStock, apperr.KindInsufficientStock}, kind,
			"loser must fail on stock, got %v", res.err)
	}
	require.Equal(t, 1, winners, "exactly one checkout may take the last unit")
	require.Equal(t, 1, losers)

	// totals of the winning order
	require.True(t, won.Subtotal.Equal(decimal.RequireFromString("750.00")))
	require.True(t, won.TaxAmount.Equal(decimal.RequireFromString("60.00")))
	require.True(t, won.ShippingAmount.Equal(decimal.RequireFromString("0.00")))
	require.True(t, won.TotalAmount.Equal(decimal.RequireFromString("810.00")))

	// inventory is exhausted and the order is durable
	p, err := catalogRepo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.OnHand)

	stored, err := orderRepo.GetByNumber(ctx, won.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status)
	require.Len(t, stored.Items, 1)

	// winner's cart is cleared, loser's cart is untouched
	for _, res := range results {
		if res.err == nil {
			n, err := cartSvc.Count(ctx, res.order.SessionID)
			require.NoError(t, err)
			assert.Equal(t, 0, n)
		}
	}
}

func TestCheckoutHTTPFlow(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	pgC, dbURL := startPostgres(ctx, t)
	defer terminateContainer(t, pgC)

	logger := log.New(io.Discard, "", log.LstdFlags)
	require.NoError(t, db.RunMigrations(dbURL, logger))

	pool, err := db.NewPool(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()

	seedProduct(ctx, t, pool, "p1", "MET-1111", "Boost Gauge", "50.00", 10)

	baseURL, stop := startAPI(t, pool, logger)
	defer stop()

	client := &http.Client{Timeout: 5 * time.Second}

	// add to cart; keep the session cookie for the rest of the flow
	resp := postJSON(ctx, t, client, baseURL+"/api/cart/items", `{"product_id": "p1", "quantity": 2}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := sessionCookieFrom(t, resp)
	resp.Body.Close()

	// checkout
	resp = postJSON(ctx, t, client, baseURL+"/api/checkout", `{
		"customer_email": "jane@example.com",
		"customer_name": "Jane Driver",
		"billing_address": {"line1": "1 Main St", "city": "Austin", "state": "TX", "zip": "78701"},
		"shipping_address": {"line1": "1 Main St", "city": "Austin", "state": "TX", "zip": "78701"}
	}`, session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created order.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.OrderNumber)
	require.True(t, created.TotalAmount.Equal(decimal.RequireFromString("133.00")))

	// the cart is empty afterwards
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/cart/count", nil)
	require.NoError(t, err)
	req.AddCookie(session)
	resp, err = client.Do(req)
	require.NoError(t, err)
	var count map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&count))
	resp.Body.Close()
	assert.Equal(t, 0, count["count"])

	// confirm payment flips status to confirmed
	resp = postJSON(ctx, t, client, baseURL+"/api/orders/"+created.OrderNumber+"/confirm-payment",
		`{"payment_reference": "ch_123"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed order.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&confirmed))
	resp.Body.Close()
	assert.Equal(t, order.StatusConfirmed, confirmed.Status)
	assert.Equal(t, order.PaymentPaid, confirmed.PaymentStatus)
}

func checkoutRequest() checkout.Request {
	return checkout.Request{
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Driver",
		BillingAddress: checkout.AddressInput{
			Line1: "1 Main St", City: "Austin", State: "TX", Zip: "78701",
		},
		ShippingAddress: checkout.AddressInput{
			Line1: "1 Main St", City: "Austin", State: "TX", Zip: "78701",
		},
	}
}

func seedProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id, sku, title, price string, onHand int) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`INSERT INTO products (id, sku, title, price) VALUES ($1, $2, $3, $4)`,
		id, sku, title, price)
	require.NoError(t, err)
	_, err = pool.Exec(ctx,
		`INSERT INTO inventory (product_id, on_hand) VALUES ($1, $2)`,
		id, onHand)
	require.NoError(t, err)
}

func startAPI(t *testing.T, pool *pgxpool.Pool, logger *log.Logger) (string, func()) {
	t.Helper()

	catalogRepo := catalog.NewPostgresRepository(pool)
	cartRepo := cart.NewRepository(pool)
	orderRepo := order.NewRepository(pool)

	cartSvc := cart.NewService(cartRepo, catalogRepo)
	checkoutSvc := checkout.NewService(pool, cartRepo, catalogRepo, orderRepo, pricing.Default(), nil, logger)
	orderSvc := order.NewService(orderRepo, nil, logger)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartSvc),
		httpapi.NewOrderHandler(checkoutSvc, orderSvc),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = server.Serve(ln) }()

	stop := func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return fmt.Sprintf("http://%s", ln.Addr().String()), stop
}

func postJSON(ctx context.Context, t *testing.T, client *http.Client, url, body string, session *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req.AddCookie(session)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func sessionCookieFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "metier_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func startPostgres(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "metier"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/metier?sslmode=disable", host, mappedPort.Port())
	return container, dsn
}

func terminateContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Terminate(ctx); err != nil {
		t.Logf("terminate container: %v", err)
	}
}
