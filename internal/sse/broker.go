// Package sse implements a Server-Sent Events broker that keeps reminder
// views in sync.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types emitted by the broker.
const (
	TypeReminderSet      = "reminder.set"
	TypeReminderDeleted  = "reminder.deleted"
	TypeReminderDue      = "reminder.due"
	TypeStoreReloaded    = "store.reloaded"
	TypeSelectionChanged = "selection.changed"
	TypeUpcomingUpdated  = "upcoming.updated"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type reminderEventReq struct {
	kind string
	date string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single loop goroutine owns the client set, the last selection and the
// upcoming-list throttle timestamp. Public methods talk to it over channels.
type Broker struct {
	refreshMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	reminderCh    chan reminderEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits upcoming.updated at most once per
// refreshThrottle.
func NewBroker(refreshThrottle time.Duration) *Broker {
	if refreshThrottle <= 0 {
		refreshThrottle = time.Second
	}

	b := &Broker{
		refreshMin:    refreshThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		reminderCh:    make(chan reminderEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) []byte {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastRefresh time.Time
	// Replayed to new subscribers so a freshly opened view lands on the
	// same date as the others.
	var selection []byte

	broadcast := func(raw []byte) {
		if raw == nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			if selection != nil {
				ch <- selection
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			raw := encode(event)
			if event.Type == TypeSelectionChanged {
				selection = raw
			}
			broadcast(raw)

		case req := <-b.reminderCh:
			data := map[string]string{"date": req.date}
			switch req.kind {
			case "set":
				broadcast(encode(Event{Type: TypeReminderSet, Data: data}))
			case "deleted":
				broadcast(encode(Event{Type: TypeReminderDeleted, Data: data}))
			case "due":
				broadcast(encode(Event{Type: TypeReminderDue, Data: data}))
				continue
			case "reloaded":
				broadcast(encode(Event{Type: TypeStoreReloaded, Data: map[string]string{}}))
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastRefresh) >= b.refreshMin {
				lastRefresh = now
				broadcast(encode(Event{Type: TypeUpcomingUpdated, Data: map[string]string{}}))
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSelection announces the date every view should show. The latest
// selection is replayed to clients that connect later.
func (b *Broker) PublishSelection(date string) {
	b.Publish(Event{Type: TypeSelectionChanged, Data: map[string]string{"date": date}})
}

// PublishReminderEvent publishes a store change and a throttled
// upcoming.updated hint. kind is one of "set", "deleted", "due", "reloaded";
// due reminders do not change the list and skip the hint.
func (b *Broker) PublishReminderEvent(kind, date string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.reminderCh <- reminderEventReq{kind: kind, date: date}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
