package progress

import (
	"log"
	"sync"
	"time"
)

// EventType identifies an event on a transfer's stream.
type EventType string

const (
	EventStatus            EventType = "status"
	EventProgress          EventType = "progress"
	EventSessionStart      EventType = "session-start"
	EventSessionCompleted  EventType = "session-completed"
	EventSessionFailed     EventType = "session-failed"
	EventTransferCompleted EventType = "transfer-completed"
	EventTransferError     EventType = "transfer-error"
)

// Snapshot carries the transfer's counters at a point in time.
type Snapshot struct {
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	Current   string `json:"current,omitempty"`
}

// Summary is attached to the terminal transfer-completed event.
type Summary struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Event is one message on a transfer's stream.
type Event struct {
	TransferID string    `json:"transfer_id"`
	Type       EventType `json:"type"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	SessionRef string    `json:"session_ref,omitempty"`
	Progress   *Snapshot `json:"progress,omitempty"`
	Summary    *Summary  `json:"summary,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Terminal reports whether no further events follow this one. Cancellation
// is not an error, so it terminates the stream with a status event rather
// than a transfer-error.
func (e Event) Terminal() bool {
	return e.Type == EventTransferCompleted ||
		e.Type == EventTransferError ||
		(e.Type == EventStatus && e.Status == "cancelled")
}

// Channel is the broadcaster the transfer manager publishes into. Injected so
// the orchestrator is testable without a real transport.
type Channel interface {
	Publish(transferID string, ev Event)
}

const subscriberBuffer = 256

// Subscription is one observer's membership in a transfer's room.
type Subscription struct {
	C    <-chan Event
	c    chan Event
	room string
	hub  *Hub
	once sync.Once
}

// Close leaves the room. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

type room struct {
	subs map[*Subscription]struct{}
	// last progress-bearing event, replayed to late subscribers
	snapshot *Event
	// terminal event, replayed then the subscription is closed immediately
	terminal *Event
}

// Hub is an in-memory, room-keyed publish/subscribe broadcaster. Every
// subscriber of a transfer receives the same event stream in publish order.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Subscribe joins the room for transferID. A subscriber joining mid-transfer
// immediately receives the current progress snapshot before live events; a
// subscriber joining after the terminal event receives the snapshot and the
// terminal event, then its channel is closed.
func (h *Hub) Subscribe(transferID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[transferID]
	if r == nil {
		r = &room{subs: make(map[*Subscription]struct{})}
		h.rooms[transferID] = r
	}

	c := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: c, c: c, room: transferID, hub: h}

	if r.snapshot != nil {
		c <- *r.snapshot
	}
	if r.terminal != nil {
		c <- *r.terminal
		close(c)
		return sub
	}

	r.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[sub.room]
	if r == nil {
		return
	}
	if _, ok := r.subs[sub]; ok {
		delete(r.subs, sub)
		close(sub.c)
	}
}

// Publish broadcasts ev to all current subscribers of transferID.
// Fire-and-forget: a subscriber whose buffer is full misses the event rather
// than blocking the transfer loop.
func (h *Hub) Publish(transferID string, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.TransferID = transferID

	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[transferID]
	if r == nil {
		r = &room{subs: make(map[*Subscription]struct{})}
		h.rooms[transferID] = r
	}

	if ev.Progress != nil {
		snap := ev
		r.snapshot = &snap
	}

	for sub := range r.subs {
		select {
		case sub.c <- ev:
		default:
			log.Printf("progress: dropping event %s for slow subscriber of %s", ev.Type, transferID)
		}
	}

	if ev.Terminal() {
		term := ev
		r.terminal = &term
		for sub := range r.subs {
			close(sub.c)
			delete(r.subs, sub)
		}
	}
}

// Drop removes a room entirely, disconnecting any remaining subscribers.
// Called when the manager evicts a terminal job.
func (h *Hub) Drop(transferID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[transferID]
	if r == nil {
		return
	}
	for sub := range r.subs {
		close(sub.c)
	}
	delete(h.rooms, transferID)
}
