package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Order is the immutable checkout snapshot. Only status, payment fields, the
// shipping timestamps, and updated_at change after creation.
type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	SessionID   string `json:"session_id,omitempty"`

	Status Status `json:"status"`

	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	BillingAddress  Address `json:"billing_address"`
	ShippingAddress Address `json:"shipping_address"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	PaymentMethod    string        `json:"payment_method,omitempty"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentReference string        `json:"payment_reference,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`

	Items []Item `json:"items"`
}

// Item snapshots a product as sold. SKU, title, brand, and unit price are
// frozen at order creation so later catalog edits never alter history.
type Item struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"order_id"`
	ProductID    string          `json:"product_id"`
	ProductSKU   string          `json:"product_sku"`
	ProductTitle string          `json:"product_title"`
	ProductBrand string          `json:"product_brand,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TotalItems is the sum of quantities across lines.
func (o *Order) TotalItems() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Stats are the admin-facing order counters plus the newest orders.
type Stats struct {
	TotalOrders      int             `json:"total_orders"`
	PendingOrders    int             `json:"pending_orders"`
	ProcessingOrders int             `json:"processing_orders"`
	ShippedOrders    int             `json:"shipped_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	RecentOrders     []Summary       `json:"recent_orders"`
}

// Summary is the compact order row used in the stats listing.
type Summary struct {
	OrderNumber  string          `json:"order_number"`
	CustomerName string          `json:"customer_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
