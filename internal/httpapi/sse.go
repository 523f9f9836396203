package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hoshino-robotics/wakaba/internal/protocol"
)

// SSE surfaces.
const (
	SurfaceKiosk = "kiosk"
	SurfaceStaff = "staff"
)

type sseMessage struct {
	event string
	data  string
}

type subscriber struct {
	surface string
	ch      chan sseMessage
}

// Hub fans kiosk commands and state snapshots out to connected SSE
// clients. Snapshot broadcasts are deduplicated per surface against the
// last serialized JSON so idle ticks stay quiet on the wire.
type Hub struct {
	keepAlive time.Duration

	mu           sync.Mutex
	subs         map[*subscriber]struct{}
	lastSnapshot map[string]string

	onClientChange func(surface string, count int)
}

func NewHub(keepAlive time.Duration) *Hub {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &Hub{
		keepAlive:    keepAlive,
		subs:         make(map[*subscriber]struct{}),
		lastSnapshot: make(map[string]string),
	}
}

// SetClientListener registers a callback for subscriber-count changes,
// used to keep the SSE gauge current.
func (h *Hub) SetClientListener(fn func(surface string, count int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClientChange = fn
}

// PublishCommand sends a kiosk command to every kiosk subscriber.
func (h *Hub) PublishCommand(cmd protocol.Command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return
	}
	h.broadcast(SurfaceKiosk, sseMessage{event: "command", data: string(data)})
}

// PublishSnapshot sends a state snapshot to one surface, skipping the
// send when the serialized payload matches the previous one.
func (h *Hub) PublishSnapshot(surface string, snapshot any) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	h.mu.Lock()
	if h.lastSnapshot[surface] == string(data) {
		h.mu.Unlock()
		return
	}
	h.lastSnapshot[surface] = string(data)
	h.mu.Unlock()

	h.broadcast(surface, sseMessage{event: "state", data: string(data)})
}

func (h *Hub) broadcast(surface string, msg sseMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.surface != surface {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// Slow client: drop rather than block the event loop.
		}
	}
}

// ClientCount returns the number of connected subscribers for a surface.
func (h *Hub) ClientCount(surface string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.countLocked(surface)
}

func (h *Hub) countLocked(surface string) int {
	n := 0
	for sub := range h.subs {
		if sub.surface == surface {
			n++
		}
	}
	return n
}

func (h *Hub) subscribe(surface string) *subscriber {
	sub := &subscriber{surface: surface, ch: make(chan sseMessage, 64)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := h.countLocked(surface)
	listener := h.onClientChange
	h.mu.Unlock()
	if listener != nil {
		listener(surface, count)
	}
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	count := h.countLocked(sub.surface)
	listener := h.onClientChange
	h.mu.Unlock()
	if listener != nil {
		listener(sub.surface, count)
	}
}

// ServeStream runs the SSE write loop for one subscriber until the
// client disconnects.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request, surface string, initial []sseMessage) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.subscribe(surface)
	defer h.unsubscribe(sub)

	for _, msg := range initial {
		writeSSE(w, msg)
	}
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg := <-sub.ch:
			writeSSE(w, msg)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, msg sseMessage) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
}
