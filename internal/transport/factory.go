package transport

import "fmt"

// NewBroker builds the PubSub named by kind. "memory" is only useful
// when client and agent run in the same process.
func NewBroker(kind, redisAddr, redisPassword, natsURL string) (PubSub, error) {
	switch kind {
	case "redis":
		return NewRedisBroker(redisAddr, redisPassword)
	case "nats":
		return NewNatsBroker(natsURL)
	case "memory":
		return NewMemoryBroker(), nil
	default:
		return nil, fmt.Errorf("unknown broker kind %q", kind)
	}
}
