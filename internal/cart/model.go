package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    *string   `json:"user_id,omitempty"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is one cart line. Price is the unit price captured when the product
// was added; it is not re-read from the catalog on later views.
type Item struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cart_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TotalItems is the sum of quantities across lines.
func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// TotalAmount is the sum of quantity * captured price across lines.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Mul(decimalFromInt(it.Quantity)))
	}
	return total
}

func (c *Cart) findItemByProduct(productID string) *Item {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// ProductInfo is the live catalog block embedded in a cart view.
type ProductInfo struct {
	ID                string `json:"id"`
	SKU               string `json:"sku"`
	Title             string `json:"title"`
	Brand             string `json:"brand"`
	InStock           bool   `json:"in_stock"`
	QuantityAvailable int    `json:"quantity_available"`
}

type ItemView struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Product   *ProductInfo    `json:"product"`
}

// View is the full cart representation returned to the HTTP layer.
type View struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	Items       []ItemView      `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
