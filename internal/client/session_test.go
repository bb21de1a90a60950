package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castlefs/internal/protocol"
	"castlefs/internal/transport"
)

var testTopics = transport.Topics{
	Requests:      "castlefs.requests",
	Responses:     "castlefs.responses",
	Notifications: "castlefs.notify",
}

// startScriptedAgent answers requests on the broker the way a remote
// handler would, according to a per-packet script. A nil return from
// the script means the agent stays silent for that request.
func startScriptedAgent(t *testing.T, broker *transport.MemoryBroker, script func(protocol.Packet) protocol.Packet) {
	t.Helper()
	inbound, err := broker.Subscribe(context.Background(), testTopics.Requests)
	require.NoError(t, err)

	go func() {
		for msg := range inbound {
			pkt, err := protocol.Unmarshal(msg.Data)
			if err != nil {
				continue
			}
			reply := script(pkt)
			if reply == nil {
				continue
			}
			data, err := protocol.Marshal(reply)
			if err != nil {
				continue
			}
			topic := testTopics.Responses
			if reply.Type() == protocol.PacketFileChanged {
				topic = testTopics.Notifications
			}
			_ = broker.Publish(context.Background(), topic, data)
		}
	}()
}

func TestSession_ReadFileResolvesWithFileData(t *testing.T) {
	broker := transport.NewMemoryBroker()
	startScriptedAgent(t, broker, func(pkt protocol.Packet) protocol.Packet {
		read, ok := pkt.(*protocol.FileRead)
		if !ok {
			return nil
		}
		return &protocol.Response{
			ID:        "s1",
			RequestID: read.ID,
			Data: map[string]any{
				"path":         read.Path,
				"content":      "hi",
				"lastModified": "2024-01-01T00:00:00Z",
			},
		}
	})

	session, err := NewSession(broker, testTopics, time.Second)
	require.NoError(t, err)
	defer session.Close()

	file, err := session.ReadFile(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", file.Path)
	assert.Equal(t, "hi", file.Content)
	assert.Equal(t, "2024-01-01T00:00:00Z", file.LastModified)
}

func TestSession_RemoteErrorSurfacesMessageAndCode(t *testing.T) {
	broker := transport.NewMemoryBroker()
	startScriptedAgent(t, broker, func(pkt protocol.Packet) protocol.Packet {
		return &protocol.RemoteError{
			ID:        "e1",
			RequestID: pkt.CorrelationID(),
			Message:   "disk full",
			Code:      "ENOSPC",
		}
	})

	session, err := NewSession(broker, testTopics, time.Second)
	require.NoError(t, err)
	defer session.Close()

	err = session.WriteFile(context.Background(), "big.txt", "data")
	require.Error(t, err)

	var remoteErr *RemoteOpError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "disk full", remoteErr.Message)
	assert.Equal(t, "ENOSPC", remoteErr.Code)
}

func TestSession_SilentAgentTimesOut(t *testing.T) {
	broker := transport.NewMemoryBroker()
	startScriptedAgent(t, broker, func(pkt protocol.Packet) protocol.Packet {
		return nil // never answers
	})

	session, err := NewSession(broker, testTopics, 50*time.Millisecond)
	require.NoError(t, err)
	defer session.Close()

	err = session.DeleteFile(context.Background(), "a.txt")
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
	assert.Equal(t, 0, session.router.PendingCount())
}

func TestSession_NotificationFanOutToAllListeners(t *testing.T) {
	broker := transport.NewMemoryBroker()
	startScriptedAgent(t, broker, func(pkt protocol.Packet) protocol.Packet {
		return nil
	})

	session, err := NewSession(broker, testTopics, time.Second)
	require.NoError(t, err)
	defer session.Close()

	var mu sync.Mutex
	var seen []string
	wait := make(chan struct{}, 2)
	for _, name := range []string{"first", "second"} {
		name := name
		session.OnFileChanged(func(change protocol.FileChanged) {
			mu.Lock()
			seen = append(seen, name+":"+change.Path+":"+change.Action)
			mu.Unlock()
			wait <- struct{}{}
		})
	}

	data, err := protocol.Marshal(&protocol.FileChanged{ID: "n1", Path: "a.txt", Action: protocol.ActionWrite})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), testTopics.Notifications, data))

	for i := 0; i < 2; i++ {
		select {
		case <-wait:
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for listener fan-out")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"first:a.txt:write", "second:a.txt:write"}, seen)
}

func TestSession_MalformedInboundDoesNotStopDispatch(t *testing.T) {
	broker := transport.NewMemoryBroker()
	startScriptedAgent(t, broker, func(pkt protocol.Packet) protocol.Packet {
		return &protocol.Response{ID: "s1", RequestID: pkt.CorrelationID(), Data: map[string]any{
			"path": "a.txt", "content": "ok", "lastModified": "2024-01-01T00:00:00Z",
		}}
	})

	session, err := NewSession(broker, testTopics, time.Second)
	require.NoError(t, err)
	defer session.Close()

	// garbage on the response topic must not kill the loop
	require.NoError(t, broker.Publish(context.Background(), testTopics.Responses, []byte("{broken")))

	file, err := session.ReadFile(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", file.Content)
}

func TestSession_CorrelationIDsAreUnique(t *testing.T) {
	broker := transport.NewMemoryBroker()
	session, err := NewSession(broker, testTopics, time.Second)
	require.NoError(t, err)
	defer session.Close()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := session.nextID()
		assert.False(t, seen[id], "duplicate correlation id %s", id)
		seen[id] = true
	}
}

func TestSession_ContextCancellationDiscardsPending(t *testing.T) {
	broker := transport.NewMemoryBroker()
	session, err := NewSession(broker, testTopics, time.Minute)
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = session.ReadFile(ctx, "a.txt")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, session.router.PendingCount())
}
