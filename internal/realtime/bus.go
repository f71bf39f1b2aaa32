// Package realtime carries table-change notifications over Redis pub/sub and
// keeps subscribed views eventually consistent with the store.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Event describes a change to a table. Delivery is at-least-once and
// unordered; subscribers must treat every event as "state may have changed".
type Event struct {
	Table string `json:"table"`
	Kind  string `json:"kind"` // INSERT, UPDATE or DELETE
}

type Bus struct {
	client  *redis.Client
	channel string
}

func NewBus(client *redis.Client, channel string) *Bus {
	return &Bus{client: client, channel: channel}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}
