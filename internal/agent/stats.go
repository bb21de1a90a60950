package agent

import (
	"sync"
	"time"

	"castlefs/internal/protocol"
)

// Stats counts what the agent has handled, for the status API.
type Stats struct {
	mu      sync.Mutex
	started time.Time
	handled map[protocol.PacketType]uint64
	errors  uint64
}

// StatsSnapshot is the JSON shape served by /stats.
type StatsSnapshot struct {
	UptimeSeconds int64             `json:"uptime_seconds"`
	Handled       map[string]uint64 `json:"handled"`
	Errors        uint64            `json:"errors"`
}

func NewStats() *Stats {
	return &Stats{
		started: time.Now(),
		handled: make(map[protocol.PacketType]uint64),
	}
}

func (s *Stats) RecordHandled(pt protocol.PacketType) {
	s.mu.Lock()
	s.handled[pt]++
	s.mu.Unlock()
}

func (s *Stats) RecordError() {
	s.mu.Lock()
	s.errors++
	s.mu.Unlock()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	handled := make(map[string]uint64, len(s.handled))
	for pt, n := range s.handled {
		handled[string(pt)] = n
	}
	return StatsSnapshot{
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Handled:       handled,
		Errors:        s.errors,
	}
}
