// Package livereload pushes build hashes to browsers over server-sent events.
package livereload

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/buildwatch/internal/metrics"
)

// HeartbeatInterval is how often idle connections receive a comment ping.
var HeartbeatInterval = 30 * time.Second

// Hub manages SSE clients for hash-change broadcasts.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*client
	recorder metrics.Recorder
	closed   bool
	lastHash string
}

type client struct {
	id   int
	ch   chan string
	done chan struct{}
}

// NewHub creates a hub. A nil recorder disables metrics.
func NewHub(recorder metrics.Recorder) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Hub{clients: map[int]*client{}, recorder: recorder}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	c := &client{id: h.nextID, ch: make(chan string, 8), done: make(chan struct{})}
	h.nextID++
	h.clients[c.id] = c
	current := h.lastHash
	count := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetLiveReloadClients(count)
	defer h.removeClient(c.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(chunk string) bool {
		if _, err := bw.WriteString(chunk); err != nil {
			slog.Debug("livereload write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first := ": connected\n\n"
	if current != "" {
		first += event(current)
	}
	if !send(first) {
		return
	}

	hb := time.NewTicker(HeartbeatInterval)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case hash := <-c.ch:
			if !send(event(hash)) {
				return
			}
		}
	}
}

func event(hash string) string {
	return "data: {\"hash\":\"" + hash + "\"}\n\n"
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetLiveReloadClients(count)
	}
}

// Broadcast sends hash to every client. Repeated or empty hashes are ignored
// and clients whose buffers are full are dropped.
func (h *Hub) Broadcast(hash string) {
	h.mu.Lock()
	if h.closed || hash == "" || hash == h.lastHash {
		h.mu.Unlock()
		return
	}
	h.lastHash = hash
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- hash:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.recorder.IncLiveReloadBroadcast()
	slog.Debug("livereload broadcast", "hash", hash, "clients", len(snapshot), "dropped", dropped)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}
