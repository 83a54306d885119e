package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/gameids/game/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending lifecycle events buffered ahead of the hub loop.
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Game clients are served from arbitrary origins, same as the CORS policy
		return true
	},
}

// Message is the JSON frame pushed to clients of a game ID
type Message struct {
	Seq     uint64            `json:"seq"`
	GameID  string            `json:"gameId"`
	Event   session.EventType `json:"event"`
	Players int               `json:"players"`
	Entry   *session.LogEntry `json:"entry,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

// Hub maintains the set of active clients and broadcasts lifecycle events
type Hub struct {
	// Registered clients by game ID, written only by Run
	games map[string]map[*Client]bool
	mu    sync.RWMutex

	// Lifecycle events to fan out
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop terminates Run and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues a registry event for delivery. It matches
// session.EventListener and never blocks once the hub is stopped.
func (h *Hub) Publish(ev session.Event) {
	entry := ev.Entry
	message := &Message{
		Seq:     ev.Seq,
		GameID:  ev.GameID,
		Event:   ev.Type,
		Players: ev.Players,
		Entry:   &entry,
	}

	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ServeWS upgrades the request and subscribes the connection to gameID.
// live is consulted once the subscription is in place; when it reports that
// the game ID ended in the meantime the connection is closed, since its
// terminal event has already been broadcast. A nil live always subscribes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string, live func() bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	if live != nil && !live() {
		h.logger.Debug("websocket subscription to ended game id", "game_id", gameID)
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}
}

// ClientCount returns the number of clients subscribed to gameID
func (h *Hub) ClientCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// registerClient adds a client to a game ID
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true

	h.logger.Debug("websocket client registered",
		"game_id", client.gameID, "clients", len(h.games[client.gameID]))
}

// unregisterClient removes a client from a game ID
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
}

func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.games[client.gameID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty game IDs
	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}

	h.logger.Debug("websocket client unregistered",
		"game_id", client.gameID, "remaining", len(clients))
}

// broadcastMessage sends a message to all clients of a game ID. Clients of a
// game ID that ended are disconnected after the final message.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.games[message.GameID] {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.dropLocked(client)
			continue
		}
		if message.Event.Terminal() {
			h.dropLocked(client)
		}
	}
}

// closeAll disconnects every client on shutdown
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.games {
		for client := range clients {
			h.dropLocked(client)
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Clients only listen; reading keeps the pong handler running
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", "game_id", c.gameID, "error", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game ended"))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
