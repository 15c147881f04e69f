package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the read model the cart and checkout validate against: product
// identity plus its inventory row.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Price         decimal.Decimal `json:"price"`
	OnHand        int             `json:"onHand"`
	OnOrder       int             `json:"onOrder"`
	Backorderable bool            `json:"backorderable"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// InStock reports whether the product can be sold at all: either units are on
// hand or the product is backorderable at zero.
func (p Product) InStock() bool {
	return p.OnHand > 0 || p.Backorderable
}

// CanFulfill reports whether a request for qty units passes the availability
// check. Backorderable products always pass.
func (p Product) CanFulfill(qty int) bool {
	return p.Backorderable || qty <= p.OnHand
}
