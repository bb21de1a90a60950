package protocol

import "fmt"

// stringField extracts a required string from a decoded payload.
// Absent or non-string values are a decode failure, never a guess.
func stringField(payload map[string]any, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrDecode, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrDecode, key)
	}
	return s, nil
}

// optionalStringField substitutes def when the field is absent. A field
// that is present but not a string is still a decode failure.
func optionalStringField(payload map[string]any, key, def string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a string", ErrDecode, key)
	}
	return s, nil
}
