package sync

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"eventhub/internal/events"
)

const defaultHistorySize = 20

// Hub fans feed messages out to TCP and WebSocket clients. The last few
// messages are replayed to every client that joins.
type Hub struct {
	mu          sync.Mutex
	clients     map[net.Conn]struct{}
	wsClients   map[*websocket.Conn]struct{}
	history     [][]byte
	historySize int
	log         zerolog.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:     make(map[net.Conn]struct{}),
		wsClients:   make(map[*websocket.Conn]struct{}),
		historySize: defaultHistorySize,
		log:         log.With().Str("component", "feed").Logger(),
	}
}

// Attach subscribes the hub to the service's bus topics.
func (h *Hub) Attach(bus evbus.Bus) error {
	if err := bus.SubscribeAsync(events.TopicIngested, h.onIngested, false); err != nil {
		return err
	}
	return bus.SubscribeAsync(events.TopicSaved, h.onSaved, false)
}

func (h *Hub) onIngested(e events.IngestedEvent) {
	if len(e.Added) == 0 {
		return
	}
	h.BroadcastJSON(IngestedMessage{
		Type:     TypeIngested,
		RunID:    e.RunID,
		Added:    e.Added,
		Total:    e.Total,
		Fallback: e.Fallback,
		At:       e.At,
	})
}

func (h *Hub) onSaved(e events.SavedEvent) {
	h.BroadcastJSON(SavedMessage{Type: TypeSaved, Event: e.Event, At: e.At})
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	for _, line := range h.history {
		if _, err := conn.Write(line); err != nil {
			_ = conn.Close()
			return
		}
	}
	h.clients[conn] = struct{}{}
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
	for _, line := range h.history {
		if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
			_ = ws.Close()
			return
		}
	}
	h.wsClients[ws] = struct{}{}
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON writes v as one JSON line to every client, dropping the
// ones that fail.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal feed message")
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	h.history = append(h.history, b)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			h.dropTCP(c, err)
			continue
		}
		if err := w.Flush(); err != nil {
			h.dropTCP(c, err)
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Debug().Err(err).Msg("dropping ws client")
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

// dropTCP must be called with h.mu held.
func (h *Hub) dropTCP(c net.Conn, err error) {
	h.log.Debug().Err(err).Str("remote", c.RemoteAddr().String()).Msg("dropping tcp client")
	_ = c.Close()
	delete(h.clients, c)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

func (h *Hub) Welcome(conn net.Conn) {
	msg := fmt.Sprintf("{\"type\":\"welcome\",\"message\":\"connected\",\"clients\":%d}\n", h.Count()+1)
	_, _ = conn.Write([]byte(msg))
}
