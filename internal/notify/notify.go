package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"

	"eventhub/internal/events"
)

const (
	RegisterMessageType  = "register"
	NewEventsMessageType = "new_events"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// EventSummary keeps datagrams small; clients fetch details over HTTP.
type EventSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}

type NewEventsMessage struct {
	Type     string         `json:"type"`
	RunID    string         `json:"run_id"`
	Count    int            `json:"count"`
	Fallback bool           `json:"fallback"`
	Events   []EventSummary `json:"events"`
}

// maxSummaries bounds the datagram size.
const maxSummaries = 20

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Server accepts UDP registrations and pushes a datagram to every
// registered client when a refresh adds events.
type Server struct {
	addr     string
	registry *Registry
	log      zerolog.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry, log zerolog.Logger) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
		log:      log.With().Str("component", "notify").Logger(),
	}
}

// Listen binds the UDP socket. Run calls it when needed.
func (s *Server) Listen() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.log.Info().Str("addr", conn.LocalAddr().String()).Msg("udp notify listening")
	return nil
}

// LocalAddr is nil until Listen succeeds.
func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Run reads registrations until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.LocalAddr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.log.Warn().Err(err).Str("from", addr.String()).Msg("invalid udp message")
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.UserID, addr)
		s.log.Info().Str("user_id", msg.UserID).Str("from", addr.String()).Msg("registered udp client")
	}
}

// Attach broadcasts every refresh that added events.
func (s *Server) Attach(bus evbus.Bus) error {
	return bus.SubscribeAsync(events.TopicIngested, func(e events.IngestedEvent) {
		if len(e.Added) == 0 {
			return
		}
		s.BroadcastNewEvents(e)
	}, false)
}

func (s *Server) BroadcastNewEvents(e events.IngestedEvent) {
	s.mu.RLock()
	running := s.conn != nil
	s.mu.RUnlock()
	if !running {
		s.log.Warn().Msg("udp notify server not running")
		return
	}

	msg := NewEventsMessage{
		Type:     NewEventsMessageType,
		RunID:    e.RunID,
		Count:    len(e.Added),
		Fallback: e.Fallback,
	}
	for i, ev := range e.Added {
		if i == maxSummaries {
			break
		}
		msg.Events = append(msg.Events, EventSummary{ID: ev.ID, Name: ev.Name, Date: ev.Date})
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal broadcast")
		return
	}

	for _, client := range s.registry.Snapshot() {
		s.sendWithRetry(client, payload)
	}
}

func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.log.Warn().Err(err).Str("user_id", client.UserID).Msg("notify failed, dropping client")
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
