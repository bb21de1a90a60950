package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Encode wraps a validly-constructed packet in a wire envelope.
// Encoding is total: every packet built through this package's
// constructors or FromPayload path serializes without failing.
func Encode(p Packet) *Envelope {
	return &Envelope{
		Type:      p.Type(),
		ID:        p.CorrelationID(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   p.WirePayload(),
	}
}

// Decode dispatches on the envelope type and rebuilds the matching
// packet variant, validating the payload field by field.
func Decode(env *Envelope) (Packet, error) {
	payload := env.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	switch env.Type {
	case PacketFileRead:
		return fileReadFromPayload(payload, env.ID)
	case PacketFileReadBinary:
		return fileReadBinaryFromPayload(payload, env.ID)
	case PacketFileList:
		return fileListFromPayload(payload, env.ID)
	case PacketFileWrite:
		return fileWriteFromPayload(payload, env.ID)
	case PacketFileDelete:
		return fileDeleteFromPayload(payload, env.ID)
	case PacketResponse:
		return responseFromPayload(payload, env.ID)
	case PacketError:
		return remoteErrorFromPayload(payload, env.ID)
	case PacketFileChanged:
		return fileChangedFromPayload(payload, env.ID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}

// Marshal encodes a packet straight to transport bytes.
func Marshal(p Packet) ([]byte, error) {
	data, err := json.Marshal(Encode(p))
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", p.Type(), err)
	}
	return data, nil
}

// Unmarshal parses transport bytes into a typed packet. JSON that does
// not parse as an envelope is a decode failure like any other.
func Unmarshal(data []byte) (Packet, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decode(&env)
}
