// Package checkout converts a session's cart into a persisted order inside a
// single database transaction: validate, price, write the order and its
// items, decrement inventory, and empty the cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/VanderajLS/metier-backend/internal/apperr"
	"github.com/VanderajLS/metier-backend/internal/cart"
	"github.com/VanderajLS/metier-backend/internal/catalog"
	"github.com/VanderajLS/metier-backend/internal/order"
	"github.com/VanderajLS/metier-backend/internal/pricing"
)

// maxNumberAttempts bounds order-number regeneration when a generated number
// is already taken.
const maxNumberAttempts = 5

// DB hands out transactions; *pgxpool.Pool satisfies it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CartStore is the slice of the cart repository the checkout uses inside its
// transaction.
type CartStore interface {
	GetBySessionTx(ctx context.Context, tx pgx.Tx, sessionID string) (*cart.Cart, error)
	ClearItemsTx(ctx context.Context, tx pgx.Tx, cartID string) error
}

// Catalog locks and mutates inventory rows inside the checkout transaction.
type Catalog interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, productID string) (catalog.Product, error)
	DecrementOnHand(ctx context.Context, tx pgx.Tx, productID string, qty int) (int, error)
}

// OrderStore persists the order snapshot inside the checkout transaction.
type OrderStore interface {
	CreateWithTx(ctx context.Context, tx pgx.Tx, o *order.Order) error
	NumberExists(ctx context.Context, tx pgx.Tx, number string) (bool, error)
}

// EventsPublisher receives post-commit notifications. A nil publisher is a
// no-op.
type EventsPublisher interface {
	PublishOrderCreated(ctx context.Context, o *order.Order) error
	PublishStockDepleted(ctx context.Context, orderNumber string, products []DepletedProduct) error
}

// DepletedProduct identifies a product whose on-hand count reached zero
// during checkout.
type DepletedProduct struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
}

// Request carries the customer and address fields for one checkout.
type Request struct {
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`

	BillingAddress  AddressInput `json:"billing_address"`
	ShippingAddress AddressInput `json:"shipping_address"`

	PaymentMethod string `json:"payment_method"`
}

type AddressInput struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type Service struct {
	db      DB
	carts   CartStore
	catalog Catalog
	orders  OrderStore
	pricing pricing.Calculator
	events  EventsPublisher
	logger  *log.Logger

	now       func() time.Time
	genNumber func(time.Time) string
}

func NewService(db DB, carts CartStore, cat Catalog, orders OrderStore, calc pricing.Calculator, events EventsPublisher, logger *log.Logger) *Service {
	return &Service{
		db:        db,
		carts:     carts,
		catalog:   cat,
		orders:    orders,
		pricing:   calc,
		events:    events,
		logger:    logger,
		now:       time.Now,
		genNumber: order.GenerateNumber,
	}
}

// Checkout runs the full pipeline for the session's cart. On any failure the
// transaction rolls back: no partial order, no lost inventory, no emptied
// cart.
func (s *Service) Checkout(ctx context.Context, sessionID string, req Request) (*order.Order, error) {
	// fail fast before touching the database
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, apperr.EmptyCart()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := s.carts.GetBySessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if c == nil || len(c.Items) == 0 {
		return nil, apperr.EmptyCart()
	}

	// Lock every inventory row up front, then re-validate. Holding the locks
	// until commit makes the availability check and the decrement one atomic
	// region per product, so two checkouts cannot both take the last unit.
	// Rows are locked in product id order; concurrent checkouts over the same
	// products queue behind each other instead of deadlocking.
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ProductID < c.Items[j].ProductID })
	products := make(map[string]catalog.Product, len(c.Items))
	for _, it := range c.Items {
		p, err := s.catalog.GetForUpdate(ctx, tx, it.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, apperr.NotFound("product " + it.ProductID)
			}
			return nil, apperr.Internal(err)
		}
		if !p.InStock() {
			return nil, apperr.OutOfStock(p.Title)
		}
		if !p.CanFulfill(it.Quantity) {
			return nil, apperr.InsufficientStock(p.Title, p.OnHand)
		}
		products[it.ProductID] = p
	}

	subtotal := decimal.Zero
	for _, it := range c.Items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	quote := s.pricing.Quote(subtotal, decimal.Zero)

	now := s.now().UTC()
	o := &order.Order{
		SessionID:       sessionID,
		Status:          order.StatusPending,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		BillingAddress:  toAddress(req.BillingAddress),
		ShippingAddress: toAddress(req.ShippingAddress),
		Subtotal:        quote.Subtotal,
		TaxAmount:       quote.Tax,
		ShippingAmount:  quote.Shipping,
		DiscountAmount:  quote.Discount,
		TotalAmount:     quote.Total,
		PaymentMethod:   paymentMethodOrDefault(req.PaymentMethod),
		PaymentStatus:   order.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, it := range c.Items {
		p := products[it.ProductID]
		o.Items = append(o.Items, order.Item{
			ProductID:    it.ProductID,
			ProductSKU:   p.SKU,
			ProductTitle: p.Title,
			ProductBrand: p.Brand,
			Quantity:     it.Quantity,
			UnitPrice:    it.Price,
			TotalPrice:   it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	number, err := s.pickOrderNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}
	o.OrderNumber = number

	if err := s.orders.CreateWithTx(ctx, tx, o); err != nil {
		return nil, apperr.Internal(err)
	}

	var depleted []DepletedProduct
	for _, it := range c.Items {
		remaining, err := s.catalog.DecrementOnHand(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if remaining == 0 && !products[it.ProductID].Backorderable {
			depleted = append(depleted, DepletedProduct{ProductID: it.ProductID, SKU: products[it.ProductID].SKU})
		}
	}

	if err := s.carts.ClearItemsTx(ctx, tx, c.ID); err != nil {
		return nil, apperr.Internal(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Internal(fmt.Errorf("commit: %w", err))
	}

	s.publish(ctx, o, depleted)
	return o, nil
}

// pickOrderNumber generates candidate numbers until one is free, bounded by
// maxNumberAttempts. The unique index on orders.order_number remains the
// last line of defence against a concurrent claim of the same number.
func (s *Service) pickOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	for range maxNumberAttempts {
		number := s.genNumber(now)
		exists, err := s.orders.NumberExists(ctx, tx, number)
		if err != nil {
			return "", apperr.Internal(err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", apperr.Internal(fmt.Errorf("no free order number after %d attempts", maxNumberAttempts))
}

func (s *Service) publish(ctx context.Context, o *order.Order, depleted []DepletedProduct) {
	if s.events == nil {
		return
	}
	// the order has committed; event failures are logged, never propagated
	if err := s.events.PublishOrderCreated(ctx, o); err != nil && s.logger != nil {
		s.logger.Printf("publish order created event: %v", err)
	}
	if len(depleted) > 0 {
		if err := s.events.PublishStockDepleted(ctx, o.OrderNumber, depleted); err != nil && s.logger != nil {
			s.logger.Printf("publish stock depleted event: %v", err)
		}
	}
}

func validateRequest(req Request) error {
	checks := []struct {
		field string
		value string
	}{
		{"customer_email", req.CustomerEmail},
		{"customer_name", req.CustomerName},
		{"billing_address_line1", req.BillingAddress.Line1},
		{"billing_city", req.BillingAddress.City},
		{"billing_state", req.BillingAddress.State},
		{"billing_zip", req.BillingAddress.Zip},
		{"shipping_address_line1", req.ShippingAddress.Line1},
		{"shipping_city", req.ShippingAddress.City},
		{"shipping_state", req.ShippingAddress.State},
		{"shipping_zip", req.ShippingAddress.Zip},
	}
	for _, c := range checks {
		if c.value == "" {
			return apperr.Validation(c.field)
		}
	}
	return nil
}

func toAddress(in AddressInput) order.Address {
	a := order.Address{
		Line1:   in.Line1,
		Line2:   in.Line2,
		City:    in.City,
		State:   in.State,
		Zip:     in.Zip,
		Country: in.Country,
	}
	if a.Country == "" {
		a.Country = "US"
	}
	return a
}

func paymentMethodOrDefault(m string) string {
	if m == "" {
		return "credit_card"
	}
	return m
}
