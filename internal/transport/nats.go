package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NatsBroker binds PubSub to NATS subjects. Selected over Redis with
// BROKER_KIND=nats; the two are interchangeable behind the interface.
type NatsBroker struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNatsBroker(natsURL string) (*NatsBroker, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NatsBroker{conn: conn}, nil
}

func (b *NatsBroker) Publish(ctx context.Context, topic string, data []byte) error {
	return b.conn.Publish(topic, data)
}

func (b *NatsBroker) Subscribe(ctx context.Context, topics ...string) (<-chan Message, error) {
	out := make(chan Message, subscriberBuffer)
	var subs []*nats.Subscription
	for _, topic := range topics {
		topic := topic
		sub, err := b.conn.Subscribe(topic, func(m *nats.Msg) {
			select {
			case out <- Message{Topic: m.Subject, Data: m.Data}:
			default:
				// full buffer: drop, same policy as the other brokers
			}
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("failed to subscribe to %q: %w", topic, err)
		}
		subs = append(subs, sub)
	}

	b.mu.Lock()
	b.subs = append(b.subs, subs...)
	b.mu.Unlock()
	return out, nil
}

func (b *NatsBroker) Close() error {
	b.mu.Lock()
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.subs = nil
	b.mu.Unlock()
	b.conn.Close()
	return nil
}
