// Package telemetry keeps the in-memory event log and the prometheus
// metrics of the ingestion service.
package telemetry

import (
	"sync"
	"time"
)

// DefaultRetention is the number of events kept when none is configured.
const DefaultRetention = 200

// Event is one entry of the log.
type Event struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventLog is a bounded log that returns the newest events first.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewEventLog returns a log keeping at most retention events.
func NewEventLog(retention int) *EventLog {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &EventLog{events: make([]Event, retention)}
}

// Record appends an event, evicting the oldest when full.
func (l *EventLog) Record(eventType string, payload map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[l.next] = Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
	l.next = (l.next + 1) % len(l.events)
	if l.next == 0 {
		l.full = true
	}
}

// Snapshot returns the retained events, newest first.
func (l *EventLog) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.next
	if l.full {
		n = len(l.events)
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.events)) % len(l.events)
		out = append(out, l.events[idx])
	}
	return out
}

// Len returns the number of retained events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.events)
	}
	return l.next
}

// Clear drops every event.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = make([]Event, len(l.events))
	l.next, l.full = 0, false
}
