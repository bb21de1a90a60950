package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBroker binds PubSub to Redis channels via go-redis.
type RedisBroker struct {
	client *redis.Client
	mu     sync.Mutex
	subs   []*redis.PubSub
}

// NewRedisBroker connects and verifies the connection with a ping, so a
// bad broker address fails at startup rather than on the first request.
func NewRedisBroker(redisAddr, password string) (*RedisBroker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBroker{client: rdb}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, data []byte) error {
	return b.client.Publish(ctx, topic, data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, topics ...string) (<-chan Message, error) {
	sub := b.client.Subscribe(ctx, topics...)
	// force the SUBSCRIBE to complete so missing-broker errors surface here
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", topics, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	out := make(chan Message, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			out <- Message{Topic: msg.Channel, Data: []byte(msg.Payload)}
		}
	}()
	return out, nil
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	for _, sub := range b.subs {
		_ = sub.Close()
	}
	b.subs = nil
	b.mu.Unlock()
	return b.client.Close()
}
