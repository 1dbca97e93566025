package devserver

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const heartbeatInterval = 30 * time.Second

// Hub manages SSE clients for output hash broadcasts.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*client
	closed   bool
	lastHash string

	clientsGauge prometheus.Gauge
	broadcasts   prometheus.Counter
}

type client struct {
	id   int
	ch   chan string
	done chan struct{}
}

// NewHub creates a hub. When reg is non-nil the hub registers its client
// gauge and broadcast counter there.
func NewHub(reg prometheus.Registerer) *Hub {
	h := &Hub{
		clients: map[int]*client{},
		clientsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "assetpack",
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients.",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "assetpack",
			Name:      "livereload_broadcasts_total",
			Help:      "Live-reload broadcasts sent.",
		}),
	}
	if reg != nil {
		reg.MustRegister(h.clientsGauge, h.broadcasts)
	}
	return h
}

// ServeHTTP implements the SSE endpoint. A new client first receives the
// last broadcast hash so it can tell later changes apart.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	current := h.lastHash
	h.clientsGauge.Set(float64(len(h.clients)))
	h.mu.Unlock()
	defer h.removeClient(c.id)

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			slog.Debug("livereload write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	greeting := ": connected\n\n"
	if current != "" {
		greeting += event(current)
	}
	if !send(greeting) {
		return
	}

	hb := time.NewTicker(heartbeatInterval)
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
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
		h.clientsGauge.Set(float64(len(h.clients)))
	}
}

// Broadcast sends hash to every client. Repeated hashes are ignored and
// clients whose buffers are full are dropped.
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
	h.broadcasts.Inc()
	slog.Debug("livereload broadcast", "hash", hash, "clients", len(snapshot), "dropped", dropped)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// LastHash returns the most recent broadcast hash.
func (h *Hub) LastHash() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastHash
}

// Shutdown disconnects all clients and stops future broadcasts.
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
	h.clientsGauge.Set(0)
}

// ClientScript is served at the live-reload script path. It reloads the page
// whenever the server announces a hash different from the first one it saw.
const ClientScript = `(() => {
  if (window.__ASSETPACK_LR__) return;
  window.__ASSETPACK_LR__ = true;
  function connect() {
    const es = new EventSource('` + EventsPath + `');
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.hash; return; }
        if (p.hash && p.hash !== current) {
          console.log('[assetpack] change detected, reloading');
          location.reload();
        }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`
