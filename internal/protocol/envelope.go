package protocol

// Envelope is the wire-level wrapper around every message: the packet
// type used as the dispatch key, a caller-generated correlation id,
// creation time in milliseconds since epoch, and the type-specific
// payload object.
type Envelope struct {
	Type      PacketType     `json:"type"`
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}
