package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange          = "metier.events"
	OrderCreatedRoutingKey  = "order.created.v1"
	OrderStatusRoutingKey   = "order.status.v1"
	StockDepletedRoutingKey = "stock.depleted.v1"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
