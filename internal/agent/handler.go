package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"castlefs/internal/protocol"
	"castlefs/internal/transport"
)

// Handler is the agent side of the protocol: it subscribes to the
// request topic, dispatches each decoded request to a storage
// operation, and publishes exactly one terminal envelope (response or
// error) carrying the original request id. Mutating operations
// additionally publish a file-changed notification after the terminal
// envelope.
type Handler struct {
	store   *Storage
	broker  transport.PubSub
	topics  transport.Topics
	limiter *rate.Limiter
	logger  *slog.Logger
	stats   *Stats
	ready   chan struct{}
}

func NewHandler(store *Storage, broker transport.PubSub, topics transport.Topics) *Handler {
	return &Handler{
		store:  store,
		broker: broker,
		topics: topics,
		// 200 requests/sec with burst of 400; protects the filesystem
		// from a misbehaving client flooding the request topic
		limiter: rate.NewLimiter(rate.Limit(200), 400),
		logger:  slog.Default(),
		stats:   NewStats(),
		ready:   make(chan struct{}),
	}
}

// Stats exposes the handler's counters for the status API.
func (h *Handler) Stats() *Stats { return h.stats }

// Ready is closed once the request subscription is established.
func (h *Handler) Ready() <-chan struct{} { return h.ready }

// Run subscribes to the request topic and serves until ctx is done or
// the subscription channel closes. Requests are handled one at a time;
// a malformed request never stops the loop.
func (h *Handler) Run(ctx context.Context) error {
	inbound, err := h.broker.Subscribe(ctx, h.topics.Requests)
	if err != nil {
		return fmt.Errorf("failed to subscribe to request topic: %w", err)
	}
	close(h.ready)

	h.logger.Info("agent_listening",
		"request_topic", h.topics.Requests,
		"storage_root", h.store.Root(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			h.handle(ctx, msg)
		}
	}
}

func (h *Handler) handle(ctx context.Context, msg transport.Message) {
	if err := h.limiter.Wait(ctx); err != nil {
		return
	}

	pkt, err := protocol.Unmarshal(msg.Data)
	if err != nil {
		h.stats.RecordError()
		h.logger.Warn("request_decode_failed",
			"error", err.Error(),
		)
		// salvage the correlation id when possible so the caller fails
		// fast with a protocol error instead of waiting out its timeout
		var env protocol.Envelope
		if json.Unmarshal(msg.Data, &env) == nil && env.ID != "" {
			h.publishError(ctx, env.ID, err.Error(), "EPROTO")
		}
		return
	}

	switch p := pkt.(type) {
	case *protocol.FileRead:
		data, err := h.store.ReadFile(p.Path)
		h.finish(ctx, p, data, err)
	case *protocol.FileReadBinary:
		data, err := h.store.ReadBinaryFile(p.Path)
		h.finish(ctx, p, data, err)
	case *protocol.FileList:
		data, err := h.store.ListDirectory(p.Path)
		h.finish(ctx, p, data, err)
	case *protocol.FileWrite:
		err := h.store.WriteFile(p.Path, p.Content)
		h.finish(ctx, p, nil, err)
		if err == nil {
			h.notify(ctx, p.Path, protocol.ActionWrite)
		}
	case *protocol.FileDelete:
		err := h.store.DeleteFile(p.Path)
		h.finish(ctx, p, nil, err)
		if err == nil {
			h.notify(ctx, p.Path, protocol.ActionDelete)
		}
	default:
		// terminal or notification packets looping back onto the
		// request topic are dropped
		h.logger.Warn("unexpected_request_packet",
			"packet_type", string(pkt.Type()),
		)
	}
}

// finish publishes the terminal envelope for one request.
func (h *Handler) finish(ctx context.Context, req protocol.Packet, data any, err error) {
	if err != nil {
		h.stats.RecordError()
		h.logger.Warn("operation_failed",
			"packet_type", string(req.Type()),
			"request_id", req.CorrelationID(),
			"error", err.Error(),
		)
		h.publishError(ctx, req.CorrelationID(), err.Error(), errorCode(err))
		return
	}

	h.stats.RecordHandled(req.Type())
	h.publish(ctx, h.topics.Responses, &protocol.Response{
		ID:        uuid.NewString(),
		RequestID: req.CorrelationID(),
		Data:      data,
	})
}

func (h *Handler) publishError(ctx context.Context, requestID, message, code string) {
	h.publish(ctx, h.topics.Responses, &protocol.RemoteError{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Message:   message,
		Code:      code,
	})
}

func (h *Handler) notify(ctx context.Context, path, action string) {
	h.publish(ctx, h.topics.Notifications, &protocol.FileChanged{
		ID:     uuid.NewString(),
		Path:   path,
		Action: action,
	})
}

func (h *Handler) publish(ctx context.Context, topic string, pkt protocol.Packet) {
	data, err := protocol.Marshal(pkt)
	if err != nil {
		h.logger.Error("publish_marshal_failed",
			"packet_type", string(pkt.Type()),
			"error", err.Error(),
		)
		return
	}
	if err := h.broker.Publish(ctx, topic, data); err != nil {
		h.logger.Error("publish_failed",
			"topic", topic,
			"packet_type", string(pkt.Type()),
			"error", err.Error(),
		)
	}
}

// errorCode maps a storage failure to the machine-readable code the
// error payload carries.
func errorCode(err error) string {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "ENOENT"
	case errors.Is(err, os.ErrPermission):
		return "EACCES"
	case errors.Is(err, syscall.EISDIR):
		return "EISDIR"
	case errors.Is(err, syscall.ENOSPC):
		return "ENOSPC"
	default:
		return "EIO"
	}
}
