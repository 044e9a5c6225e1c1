// Package events publishes order and table notifications for kitchen
// displays and other consumers outside the request path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderItemsReplaced Type = "order.items_replaced"
	OrderDeleted       Type = "order.deleted"
	OrderPaid          Type = "order.paid"
	TableReleased      Type = "table.released"
	TablesCreated      Type = "tables.created"
)

type Event struct {
	Type       Type           `json:"type"`
	SellerID   string         `json:"seller_id"`
	OrderID    string         `json:"order_id,omitempty"`
	TableID    string         `json:"table_id,omitempty"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// RoutingKey lets consumers bind per event type and per seller,
// e.g. "order.*.seller-1".
func (e Event) RoutingKey() string {
	return fmt.Sprintf("%s.%s", e.Type, e.SellerID)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
