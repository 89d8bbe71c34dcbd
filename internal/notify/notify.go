// Package notify publishes feed activity (new events, joins, leaves and
// replies) to a Redis channel so other processes can follow the feed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Activity types.
const (
	EventCreated = "event_created"
	EventJoined  = "event_joined"
	EventLeft    = "event_left"
	ReplyAdded   = "reply_added"
)

// Message is the envelope written to the channel.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewMessage wraps payload in an envelope with a fresh id.
func NewMessage(kind string, payload any) Message {
	return Message{
		ID:        uuid.New().String(),
		Type:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Publisher is implemented by RedisPublisher and Nop.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any) error
}

// RedisPublisher publishes JSON messages with PUBLISH.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher connects to the Redis server at url and verifies the
// connection.
func NewRedisPublisher(ctx context.Context, url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond
	opts.MaxRetries = 1
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// Publish sends one message to the configured channel.
func (p *RedisPublisher) Publish(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(NewMessage(kind, payload))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Nop discards every message. It is used when no Redis URL is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, any) error { return nil }
