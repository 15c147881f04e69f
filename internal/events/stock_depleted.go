package events

import (
	"time"

	"github.com/VanderajLS/metier-backend/internal/checkout"
)

const EventTypeStockDepleted = "StockDepleted"

type StockDepleted struct {
	EventType   string         `json:"eventType"`
	OrderNumber string         `json:"orderNumber"`
	Depleted    []DepletedLine `json:"depleted"`
	Timestamp   time.Time      `json:"timestamp"`
}

type DepletedLine struct {
	ProductID string `json:"productId"`
	SKU       string `json:"sku"`
}

func newStockDepleted(orderNumber string, products []checkout.DepletedProduct, now time.Time) StockDepleted {
	ev := StockDepleted{
		EventType:   EventTypeStockDepleted,
		OrderNumber: orderNumber,
		Timestamp:   now,
	}
	for _, p := range products {
		ev.Depleted = append(ev.Depleted, DepletedLine{ProductID: p.ProductID, SKU: p.SKU})
	}
	return ev
}
