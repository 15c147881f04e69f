package events

import (
	"time"

	"github.com/VanderajLS/metier-backend/internal/order"
)

const EventTypeOrderStatusChanged = "OrderStatusChanged"

type OrderStatusChanged struct {
	EventType      string    `json:"eventType"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	PreviousStatus string    `json:"previousStatus"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

func newOrderStatusChanged(o *order.Order, previous order.Status, now time.Time) OrderStatusChanged {
	return OrderStatusChanged{
		EventType:      EventTypeOrderStatusChanged,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		PreviousStatus: string(previous),
		Status:         string(o.Status),
		Timestamp:      now,
	}
}
