package transport

import (
	"context"
	"fmt"
	"sync"
)

// subscriberBuffer bounds each subscriber channel so one stalled
// consumer cannot block a publisher forever.
const subscriberBuffer = 64

// MemoryBroker is an in-process PubSub used by tests and by single-node
// setups where client and agent share an address space. Fan-out follows
// the same subscriber-map discipline as the networked brokers.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string][]chan Message // topic -> subscriber channels
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string][]chan Message),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, topic string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory broker is closed")
	}
	// copy so a slow subscriber cannot observe later mutations
	payload := make([]byte, len(data))
	copy(payload, data)
	for _, ch := range b.subs[topic] {
		select {
		case ch <- Message{Topic: topic, Data: payload}:
		default:
			// subscriber buffer full: drop, matching the at-most-once
			// delivery the protocol already tolerates
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topics ...string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("memory broker is closed")
	}
	ch := make(chan Message, subscriberBuffer)
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], ch)
	}
	return ch, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	seen := make(map[chan Message]bool)
	for _, chans := range b.subs {
		for _, ch := range chans {
			if !seen[ch] {
				seen[ch] = true
				close(ch)
			}
		}
	}
	b.subs = make(map[string][]chan Message)
	return nil
}
