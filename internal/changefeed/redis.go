package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Redis fans changes out over pub/sub channels named <prefix><collection>.
// Delivery is at-most-once: subscribers that are offline miss changes.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, prefix: prefix, logger: logger.With("component", "changefeed")}
}

func (r *Redis) channel(collection string) string {
	return r.prefix + collection
}

func (r *Redis) Publish(ctx context.Context, changes ...Change) error {
	if len(changes) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, ch := range changes {
		payload, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("marshal change %s/%s: %w", ch.Collection, ch.DocumentID, err)
		}
		pipe.Publish(ctx, r.channel(ch.Collection), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish changes: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, r.channel(collection))
	// Wait for the subscription to be confirmed before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	out := make(chan Change, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ch Change
				if err := json.Unmarshal([]byte(msg.Payload), &ch); err != nil {
					r.logger.Warn("dropping undecodable change", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- ch:
				case <-done:
					return
				}
			}
		}
	}()

	return newSubscription(out, func() {
		close(done)
		if err := pubsub.Close(); err != nil {
			r.logger.Warn("closing subscription", "collection", collection, "error", err)
		}
	}), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
