package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"battleship-ai/internal/app"
)

const wsIdlePingInterval = 30 * time.Second

// Hub fans game events out to websocket clients. A client subscribed to a
// game only sees that game's events; one without a game sees all of them.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	log     zerolog.Logger
}

type Client struct {
	hub    *Hub
	gameID string
	send   chan []byte
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{clients: make(map[*Client]struct{}), log: log}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements app.Publisher.
func (h *Hub) Publish(ev app.Event) {
	msg := wsMessage{Type: ev.Type, Payload: mustMarshal(ev)}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.gameID != "" && c.gameID != ev.GameID {
			continue
		}
		c.sendJSON(msg)
	}
}

// sendJSON drops the message when the client is not keeping up.
func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Debug().Str("type", msg.Type).Msg("ws client lagging, message dropped")
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// handleWS serves /ws?game=<id>. Clients may send {"type":"request_state"}
// to get the current state of their game.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID != "" {
		if _, err := s.svc.State(gameID); err != nil {
			writeError(w, err)
			return
		}
	}
	// Registered before the handshake completes so no event published
	// after the client connects is missed.
	client := &Client{hub: s.hub, gameID: gameID, send: make(chan []byte, 16)}
	s.hub.Register(client)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.Unregister(client)
		return
	}
	s.sendState(client)

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			s.log.Debug().Err(err).Msg("ws write ended")
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "request_state":
			s.sendState(client)
		}
	}
}

func (s *Server) sendState(c *Client) {
	if c.gameID == "" {
		c.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(s.status())})
		return
	}
	st, err := s.svc.State(c.gameID)
	if err != nil {
		c.sendJSON(wsMessage{Type: "error", Payload: mustMarshal(errorBody{Error: err.Error()})})
		return
	}
	c.sendJSON(wsMessage{Type: "state", Payload: mustMarshal(st)})
}
