// Package sse implements a Server-Sent Events broker that tells browsers
// when the vault graph has been rebuilt.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// KeepAlive is the interval between comment pings on idle streams.
var KeepAlive = 30 * time.Second

// clientBuffer is how many undelivered messages a client may queue before
// it is disconnected.
const clientBuffer = 64

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Rebuild summarises one graph rebuild.
type Rebuild struct {
	Changed     []string  `json:"changed"`
	Removed     []string  `json:"removed"`
	Documents   int       `json:"documents"`
	Collections int       `json:"collections"`
	Diagnostics int       `json:"diagnostics"`
	BuiltAt     time.Time `json:"built_at"`
}

// merge folds a later rebuild into r. Counts and time come from the later
// one; changed and removed IDs accumulate.
func (r *Rebuild) merge(next Rebuild) {
	for _, id := range next.Changed {
		r.Removed = slices.DeleteFunc(r.Removed, func(s string) bool { return s == id })
		if !slices.Contains(r.Changed, id) {
			r.Changed = append(r.Changed, id)
		}
	}
	for _, id := range next.Removed {
		r.Changed = slices.DeleteFunc(r.Changed, func(s string) bool { return s == id })
		if !slices.Contains(r.Removed, id) {
			r.Removed = append(r.Removed, id)
		}
	}
	r.Documents = next.Documents
	r.Collections = next.Collections
	r.Diagnostics = next.Diagnostics
	r.BuiltAt = next.BuiltAt
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the clients, the message sequence and the pending
// graph.rebuilt summary; public methods talk to it over channels.
//
// Every document event reaches every connected client. A client that falls
// clientBuffer messages behind is disconnected instead, so that it
// reconnects and refetches rather than silently missing updates. Summaries
// are coalesced: at most one graph.rebuilt per throttle interval, carrying
// everything that changed since the previous one.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	rebuildCh     chan Rebuild
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph.rebuilt throttle.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		rebuildCh:     make(chan Rebuild, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var seq uint64

	var lastSummary time.Time
	var pending *Rebuild
	var flush <-chan time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				delete(clients, ch)
				close(ch)
			}
		}
	}

	summarize := func(now time.Time) {
		broadcast(Event{Type: "graph.rebuilt", Data: *pending})
		pending = nil
		flush = nil
		lastSummary = now
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

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case rb := <-b.rebuildCh:
			for _, id := range rb.Changed {
				broadcast(Event{Type: "document.updated", Data: map[string]string{"id": id}})
			}
			for _, id := range rb.Removed {
				broadcast(Event{Type: "document.deleted", Data: map[string]string{"id": id}})
			}

			if pending == nil {
				pending = &Rebuild{}
			}
			pending.merge(rb)
			now := time.Now()
			if wait := b.throttle - now.Sub(lastSummary); wait <= 0 {
				summarize(now)
			} else if flush == nil {
				flush = time.After(wait)
			}

		case now := <-flush:
			summarize(now)

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

// Subscribe adds a new client and returns its channel. The channel is
// closed when the client is unsubscribed, falls too far behind, or the
// broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
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

// PublishRebuild publishes one event per changed or removed document and
// schedules a graph.rebuilt summary.
func (b *Broker) PublishRebuild(rb Rebuild) {
	if b.closed.Load() {
		return
	}
	select {
	case b.rebuildCh <- rb:
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
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.throttle.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(KeepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
