package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/campusbites/orderline/pkg/cache"
)

// Update is the publish payload accepted at the notification ingress
// (spec.md §4.I: "POST with {order_id, status, principal_id} -> publish
// JSON to channel order:{order_id}").
type Update struct {
	OrderID     string `json:"order_id" binding:"required"`
	Status      string `json:"status" binding:"required"`
	PrincipalID uint64 `json:"principal_id"`
}

// Publisher fans an Update out to its per-order channel.
type Publisher struct {
	cache cache.Cache
}

// NewPublisher creates a Publisher.
func NewPublisher(c cache.Cache) *Publisher {
	return &Publisher{cache: c}
}

// Publish pushes the update's JSON encoding to channel "order:{order_id}"
// and returns that channel name.
func (p *Publisher) Publish(ctx context.Context, update Update) (string, error) {
	payload, err := json.Marshal(update)
	if err != nil {
		return "", fmt.Errorf("failed to marshal notification update: %w", err)
	}
	channel := channelName(update.OrderID)
	if err := p.cache.Publish(ctx, channel, payload); err != nil {
		return "", fmt.Errorf("failed to publish notification update: %w", err)
	}
	return channel, nil
}

func channelName(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}
