package client

import (
	"fmt"
	"time"
)

// TimeoutError means no terminal envelope matched the request before
// its deadline. The remote outcome, if any, is unknown; a late arrival
// is dropped by the router.
type TimeoutError struct {
	RequestID string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out after %s", e.RequestID, e.Timeout)
}

// RemoteOpError is a failure reported by the agent for a specific
// request: a human-readable message plus an optional machine code.
type RemoteOpError struct {
	RequestID string
	Message   string
	Code      string
}

func (e *RemoteOpError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}
