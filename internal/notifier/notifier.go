// Package notifier is the realtime change-signal channel for the
// ledger. Writers publish "the ledger for user X changed" after every
// mutation; observers subscribe and re-derive balances from the log.
// No shared mutable state crosses this channel, only the invalidation
// signal itself.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// ChannelLedgerChanged is the Redis pub/sub channel for change signals.
const ChannelLedgerChanged = "ledger:changed"

// Ledger table names carried in change events.
const (
	TableWallet = "wallet_transactions"
	TableBonus  = "bonus_transactions"
)

// Event tells observers which user's ledger changed and in which table.
type Event struct {
	UserID uint   `json:"user_id"`
	Table  string `json:"table"`
}

// Publisher is the write side of the change channel.
type Publisher interface {
	LedgerChanged(ctx context.Context, userID uint, table string) error
}

// RedisNotifier publishes and subscribes over Redis pub/sub.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) LedgerChanged(ctx context.Context, userID uint, table string) error {
	payload, err := json.Marshal(Event{UserID: userID, Table: table})
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := n.client.Publish(ctx, ChannelLedgerChanged, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of change events. The channel closes when
// ctx is cancelled. Malformed payloads are logged and dropped.
func (n *RedisNotifier) Subscribe(ctx context.Context) <-chan Event {
	sub := n.client.Subscribe(ctx, ChannelLedgerChanged)
	events := make(chan Event)

	go func() {
		defer close(events)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("notifier: dropping malformed event: %v", err)
					continue
				}
				events <- ev
			}
		}
	}()

	return events
}

// NoopPublisher discards change signals. Used where no notifier is
// wired, such as the standalone reconciliation binary.
type NoopPublisher struct{}

func (NoopPublisher) LedgerChanged(context.Context, uint, string) error { return nil }
