package protocol

import "errors"

var (
	// ErrDecode wraps every malformed-payload failure: a required field
	// that is absent or not the expected primitive type.
	ErrDecode = errors.New("protocol: malformed payload")
	// ErrUnsupportedType is returned when an envelope's type is outside
	// the closed PacketType set.
	ErrUnsupportedType = errors.New("protocol: unsupported packet type")
)
