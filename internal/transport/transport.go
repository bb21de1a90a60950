package transport

import "context"

// Message is one raw envelope delivered from a subscribed topic.
type Message struct {
	Topic string
	Data  []byte
}

// PubSub is the broker contract the protocol rides on. Publish is
// fire-and-forget: delivery, ordering and duplication guarantees are
// whatever the underlying broker provides, which is why the layers
// above correlate by id and carry explicit timeouts.
type PubSub interface {
	Publish(ctx context.Context, topic string, data []byte) error
	// Subscribe opens one persistent subscription covering all given
	// topics and returns a single channel. Draining that channel from
	// one goroutine gives the serial inbound dispatch path the client
	// relies on. The channel closes when the subscription ends.
	Subscribe(ctx context.Context, topics ...string) (<-chan Message, error)
	Close() error
}

// Topics names the three channels a session or agent binds to.
// Topic naming and session scoping are conventions between the
// deployer's client and agent, not part of the protocol itself.
type Topics struct {
	Requests      string
	Responses     string
	Notifications string
}
