package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"castlefs/internal/protocol"
	"castlefs/internal/transport"
)

// NotificationFunc receives every file-changed notification the session
// observes, regardless of which session caused the mutation.
type NotificationFunc func(protocol.FileChanged)

// Session is one client endpoint of the protocol: it owns a transport
// subscription to the response and notification topics, a correlation
// router, and the listener registry. Sessions are constructed objects
// with their own lifecycle, never ambient globals, so independent
// sessions never share pending-request state.
type Session struct {
	id        string
	seq       atomic.Uint64
	broker    transport.PubSub
	topics    transport.Topics
	router    *Router
	timeout   time.Duration
	logger    *slog.Logger
	mu        sync.RWMutex
	listeners []NotificationFunc
	done      chan struct{}
}

// NewSession subscribes to the response and notification topics and
// starts the single inbound dispatch goroutine. requestTimeout is the
// deadline applied to every call; it is the only cancellation the
// protocol itself provides.
func NewSession(broker transport.PubSub, topics transport.Topics, requestTimeout time.Duration) (*Session, error) {
	s := &Session{
		id:      uuid.NewString(),
		broker:  broker,
		topics:  topics,
		router:  NewRouter(),
		timeout: requestTimeout,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}

	inbound, err := broker.Subscribe(context.Background(), topics.Responses, topics.Notifications)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe session: %w", err)
	}

	go s.dispatchLoop(inbound)

	s.logger.Info("session_started",
		"session_id", s.id,
		"response_topic", topics.Responses,
		"notification_topic", topics.Notifications,
	)
	return s, nil
}

// ID returns the session identity used to prefix correlation ids.
func (s *Session) ID() string { return s.id }

// OnFileChanged registers a change listener. All registered listeners
// are invoked, in registration order, for every notification.
func (s *Session) OnFileChanged(fn NotificationFunc) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// ReadFile fetches a text file snapshot from the agent.
func (s *Session) ReadFile(ctx context.Context, path string) (*protocol.FileData, error) {
	data, err := s.call(ctx, &protocol.FileRead{ID: s.nextID(), Path: path})
	if err != nil {
		return nil, err
	}
	var file protocol.FileData
	if err := decodeData(data, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ReadBinaryFile fetches a base64 binary snapshot from the agent.
func (s *Session) ReadBinaryFile(ctx context.Context, path string) (*protocol.BinaryFileData, error) {
	data, err := s.call(ctx, &protocol.FileReadBinary{ID: s.nextID(), Path: path})
	if err != nil {
		return nil, err
	}
	var file protocol.BinaryFileData
	if err := decodeData(data, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListDirectory fetches a recursive listing snapshot. An empty path
// lists the agent's root.
func (s *Session) ListDirectory(ctx context.Context, path string) (*protocol.DirectoryTree, error) {
	data, err := s.call(ctx, &protocol.FileList{ID: s.nextID(), Path: path})
	if err != nil {
		return nil, err
	}
	var tree protocol.DirectoryTree
	if err := decodeData(data, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// WriteFile stores content at path on the agent.
func (s *Session) WriteFile(ctx context.Context, path, content string) error {
	_, err := s.call(ctx, &protocol.FileWrite{ID: s.nextID(), Path: path, Content: content})
	return err
}

// DeleteFile removes the file at path on the agent.
func (s *Session) DeleteFile(ctx context.Context, path string) error {
	_, err := s.call(ctx, &protocol.FileDelete{ID: s.nextID(), Path: path})
	return err
}

// Close stops the dispatch loop and closes the underlying transport.
func (s *Session) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	err := s.broker.Close()
	s.logger.Info("session_closed",
		"session_id", s.id,
	)
	return err
}

// nextID builds a correlation id from the session prefix plus a
// monotonically increasing counter, so concurrently open requests
// never collide across or within sessions.
func (s *Session) nextID() string {
	return fmt.Sprintf("%s-%d", s.id[:8], s.seq.Add(1))
}

// call publishes one request and blocks until its outcome: response
// data, a remote error, the request timeout, or context cancellation.
func (s *Session) call(ctx context.Context, pkt protocol.Packet) (any, error) {
	id := pkt.CorrelationID()
	outcome := s.router.Track(id, s.timeout)

	data, err := protocol.Marshal(pkt)
	if err != nil {
		s.router.Discard(id)
		return nil, err
	}
	if err := s.broker.Publish(ctx, s.topics.Requests, data); err != nil {
		s.router.Discard(id)
		return nil, fmt.Errorf("failed to publish %s request: %w", pkt.Type(), err)
	}

	select {
	case out := <-outcome:
		return out.Data, out.Err
	case <-ctx.Done():
		s.router.Discard(id)
		return nil, ctx.Err()
	}
}

// dispatchLoop is the single inbound path: messages are decoded and
// routed one at a time, so no two inbound envelopes race on the
// pending map or the listener registry. One malformed message must
// never stop the loop.
func (s *Session) dispatchLoop(inbound <-chan transport.Message) {
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			s.dispatch(msg)
		}
	}
}

func (s *Session) dispatch(msg transport.Message) {
	pkt, err := protocol.Unmarshal(msg.Data)
	if err != nil {
		s.logger.Warn("inbound_decode_failed",
			"session_id", s.id,
			"topic", msg.Topic,
			"error", err.Error(),
		)
		return
	}

	switch p := pkt.(type) {
	case *protocol.Response:
		s.router.Resolve(p.RequestID, p.Data)
	case *protocol.RemoteError:
		s.router.Reject(p.RequestID, &RemoteOpError{
			RequestID: p.RequestID,
			Message:   p.Message,
			Code:      p.Code,
		})
	case *protocol.FileChanged:
		s.fanOut(*p)
	default:
		s.logger.Warn("unexpected_inbound_packet",
			"session_id", s.id,
			"packet_type", string(pkt.Type()),
		)
	}
}

func (s *Session) fanOut(change protocol.FileChanged) {
	s.mu.RLock()
	listeners := make([]NotificationFunc, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// decodeData reshapes a response's opaque data into the snapshot type
// the caller expects for the operation it issued.
func decodeData(data any, target any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrDecode, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrDecode, err)
	}
	return nil
}
