package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/VanderajLS/metier-backend/internal/order"
)

const EventTypeOrderCreated = "OrderCreated"

type OrderCreated struct {
	EventType     string          `json:"eventType"`
	OrderID       string          `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerEmail string          `json:"customerEmail"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Items         []OrderLine     `json:"items"`
	Timestamp     time.Time       `json:"timestamp"`
}

type OrderLine struct {
	ProductID string          `json:"productId"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func newOrderCreated(o *order.Order, now time.Time) OrderCreated {
	ev := OrderCreated{
		EventType:     EventTypeOrderCreated,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.CustomerEmail,
		TotalAmount:   o.TotalAmount,
		Timestamp:     now,
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderLine{
			ProductID: it.ProductID,
			SKU:       it.ProductSKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return ev
}
