package service

import (
	ws "ecofood/internal/websocket"
)

// Event names pushed to websocket clients
const (
	EventRequestCreated      = "request.created"
	EventRequestApproved     = "request.approved"
	EventRequestRejected     = "request.rejected"
	EventProductStockChanged = "product.stock_changed"
	EventCatalogChanged      = "catalog.changed"
)

// EventPublisher fans events out to connected clients. *websocket.Hub satisfies it.
type EventPublisher interface {
	Publish(evt ws.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(ws.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
