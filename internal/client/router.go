package client

import (
	"log/slog"
	"sync"
	"time"
)

// Outcome is the single settlement of one tracked request: data on
// success or a non-nil error (remote failure or timeout).
type Outcome struct {
	Data any
	Err  error
}

type pendingCall struct {
	ch    chan Outcome
	timer *time.Timer
}

// Router owns the in-flight request map, the only shared mutable state
// on the client side. Every tracked id settles exactly once: the first
// of resolve, reject or timeout wins, later arrivals for the same id
// are dropped.
type Router struct {
	mu      sync.Mutex
	pending map[string]*pendingCall
	logger  *slog.Logger
}

func NewRouter() *Router {
	return &Router{
		pending: make(map[string]*pendingCall),
		logger:  slog.Default(),
	}
}

// Track registers a new in-flight request and arms its timeout. The
// returned channel delivers exactly one Outcome.
func (r *Router) Track(id string, timeout time.Duration) <-chan Outcome {
	call := &pendingCall{
		// buffered so settlement never blocks the dispatch path
		ch: make(chan Outcome, 1),
	}
	call.timer = time.AfterFunc(timeout, func() {
		r.settle(id, Outcome{Err: &TimeoutError{RequestID: id, Timeout: timeout}})
	})

	r.mu.Lock()
	r.pending[id] = call
	r.mu.Unlock()
	return call.ch
}

// Resolve settles the request matching a response's requestId.
func (r *Router) Resolve(requestID string, data any) {
	r.settle(requestID, Outcome{Data: data})
}

// Reject settles the request matching an error's requestId.
func (r *Router) Reject(requestID string, err error) {
	r.settle(requestID, Outcome{Err: err})
}

// Discard forgets a tracked id without delivering an outcome, for
// callers that stop waiting on their own (context cancellation).
func (r *Router) Discard(id string) {
	r.mu.Lock()
	call, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()
	if ok {
		call.timer.Stop()
	}
}

// PendingCount reports how many requests are currently in flight.
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// settle removes the entry under lock before delivering, so a response
// and the timeout racing on the same id cannot both win. Unmatched ids
// are dropped, not errors: the request already settled, or it belongs
// to another session on the same topic.
func (r *Router) settle(id string, out Outcome) {
	r.mu.Lock()
	call, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("unmatched_request_id_dropped",
			"request_id", id,
		)
		return
	}
	call.timer.Stop()
	call.ch <- out
}
