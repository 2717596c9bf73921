// Package gateway exposes the scanner read path: REST handlers for the
// latest snapshots and a WebSocket hub that streams each finished scan
// to subscribed clients.
package gateway

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"groww-scanner/internal/metrics"
	"groww-scanner/internal/model"
)

// Hub tracks connected WebSocket clients and fans scanner payloads out
// to them by timeframe. Publish implements model.SnapshotPublisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[model.Timeframe][]byte
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[model.Timeframe][]byte),
		metrics: m,
	}
}

// HandleWS wires an upgraded connection into the hub and starts its
// read and write pumps.
func (h *Hub) HandleWS(conn *websocket.Conn, tf model.Timeframe) {
	client := newClient(h, conn, tf)
	h.register(client)
	go client.writePump()
	go client.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	replay := h.latest[c.timeframe]
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.WSClients.WithLabelValues(string(c.timeframe)).Inc()

	// Replay the most recent snapshot so a fresh client does not wait
	// out a full scan interval for its first payload.
	if replay != nil {
		select {
		case c.send <- replay:
		default:
		}
	}
	log.Printf("[gateway] ws client %s connected for %s (%d total)", c.id, c.timeframe, count)
}

// RemoveClient detaches a client and closes its send channel. Safe to
// call more than once for the same client.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.metrics.WSClients.WithLabelValues(string(c.timeframe)).Dec()
		log.Printf("[gateway] ws client %s disconnected (%d total)", c.id, count)
	}
}

// Publish fans a finished scanner payload out to every client subscribed
// to the timeframe. Never blocks: a client whose send buffer is full is
// dropped rather than allowed to stall the sweep.
func (h *Hub) Publish(tf model.Timeframe, payload []byte) {
	h.mu.Lock()
	h.latest[tf] = payload

	var sent int
	var slow []*Client
	for c := range h.clients {
		if c.timeframe != tf {
			continue
		}
		select {
		case c.send <- payload:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if sent > 0 {
		h.metrics.WSMessagesTotal.Add(float64(sent))
	}
	for _, c := range slow {
		h.metrics.WSClients.WithLabelValues(string(c.timeframe)).Dec()
		h.metrics.WSDroppedTotal.Inc()
		log.Printf("[gateway] ws client %s dropped: send buffer full", c.id)
	}
}

// ClientCount reports connected clients across all timeframes.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
