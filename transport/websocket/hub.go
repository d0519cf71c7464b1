package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound messages buffered per client before it counts as stalled.
	sendBuffer = 256
)

var (
	ErrClientClosed  = errors.New("client connection closed")
	ErrClientStalled = errors.New("client send buffer full")
)

// Envelope is the outbound frame. ReplyTo carries the id of the command a
// command-result or error answers.
type Envelope struct {
	Event   string `json:"event"`
	ReplyTo string `json:"replyTo,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Command is an inbound frame. Room accepts a room id or a live passcode.
type Command struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Room        string `json:"room,omitempty"`
	Passcode    string `json:"passcode,omitempty"`
	CardIndex   *int   `json:"cardIndex,omitempty"`
	ChosenColor string `json:"chosenColor,omitempty"`
	Message     string `json:"message,omitempty"`
	Rules       string `json:"rules,omitempty"`
}

// Inbound command types.
const (
	CommandCreateRoom     = "create-room"
	CommandJoinRoom       = "join-room"
	CommandGetRoomList    = "get-room-list"
	CommandGetRoomByID    = "get-room-by-id"
	CommandStartRoom      = "start-room"
	CommandPlayCard       = "play-card"
	CommandDrawCard       = "draw-card"
	CommandLeaveRoom      = "leave-room"
	CommandRequestRematch = "request-rematch"
	CommandChat           = "chat"
	CommandGetView        = "get-view"
)

const (
	eventCommandResult = "command-result"
	eventError         = "error"
)

// ErrorReply is the data of an error frame.
type ErrorReply struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Handler executes commands read from a client. HandleCommand runs on the
// client's read goroutine, so commands from one participant execute in
// order. A returned error is reported back to that client only.
type Handler interface {
	HandleCommand(ctx context.Context, c *Client, cmd Command) (any, error)
	Disconnected(c *Client)
}

// ErrorClassifier maps a handler error to the kind reported to the client.
type ErrorClassifier func(err error) string

// Client is one WebSocket connection bound to a player identity. It
// implements room.Channel.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	playerID    string
	displayName string

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, playerID, displayName string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		playerID:    playerID,
		displayName: displayName,
	}
}

// PlayerID returns the identity the connection was opened with.
func (c *Client) PlayerID() string { return c.playerID }

// DisplayName returns the name the connection was opened with.
func (c *Client) DisplayName() string { return c.displayName }

// Send queues an event without blocking. It fails once the connection is
// closed or when the client has stopped draining its buffer.
func (c *Client) Send(event string, payload any) error {
	return c.sendEnvelope(Envelope{Event: event, Data: payload})
}

func (c *Client) sendEnvelope(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientStalled
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks every connected client and fans lobby events out to them.
type Hub struct {
	clients map[*Client]bool
	count   atomic.Int64

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	upgrader websocket.Upgrader
	origins  map[string]bool
	classify ErrorClassifier
	logger   *zap.Logger
}

// NewHub creates a new WebSocket hub. A nil logger discards output.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		classify:   func(error) string { return "Internal" },
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetAllowedOrigins restricts browser upgrades to the given origins, such as
// "https://uno.example.com". With none set every origin is accepted. Requests
// without an Origin header come from non-browser clients and are always
// accepted. Call it before serving.
func (h *Hub) SetAllowedOrigins(origins []string) {
	h.origins = nil
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if h.origins == nil {
			h.origins = make(map[string]bool)
		}
		h.origins[strings.ToLower(o)] = true
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if len(h.origins) == 0 || origin == "" {
		return true
	}
	return h.origins[strings.ToLower(origin)]
}

// SetErrorClassifier sets how handler errors are labelled in error frames.
func (h *Hub) SetErrorClassifier(fn ErrorClassifier) {
	if fn != nil {
		h.classify = fn
	}
}

// Run starts the hub's event loop and returns when ctx is done, closing
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.unregisterClient(client)
		}
		close(h.done)
	}()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			return
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and serves it as playerID until the peer
// goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerID, displayName string, handler Handler) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, playerID, displayName)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump(handler)
}

// BroadcastAll sends an event to every connected client. It never blocks;
// the event is dropped when the hub is backed up.
func (h *Hub) BroadcastAll(event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Broadcast dropped, hub backed up", zap.String("event", event))
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	h.count.Store(int64(len(h.clients)))

	h.logger.Debug("Client registered",
		zap.String("player_id", client.playerID),
		zap.Int("clients", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	h.count.Store(int64(len(h.clients)))
	client.close()

	h.logger.Debug("Client unregistered",
		zap.String("player_id", client.playerID),
		zap.Int("clients", len(h.clients)))
}

func (h *Hub) broadcastMessage(message []byte) {
	for client := range h.clients {
		if err := client.enqueue(message); errors.Is(err, ErrClientStalled) {
			h.logger.Warn("Dropping stalled client", zap.String("player_id", client.playerID))
			h.unregisterClient(client)
		}
	}
}

// readPump reads commands and runs them through handler one at a time.
func (c *Client) readPump(handler Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		handler.Disconnected(c)
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
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Info("WebSocket error", zap.String("player_id", c.playerID), zap.Error(err))
			}
			return
		}
		c.dispatch(ctx, handler, data)
	}
}

func (c *Client) dispatch(ctx context.Context, handler Handler, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type == "" {
		c.sendEnvelope(Envelope{Event: eventError, Data: ErrorReply{Kind: "InvalidCommand", Message: "malformed command"}})
		return
	}

	result, err := handler.HandleCommand(ctx, c, cmd)
	if err != nil {
		c.hub.logger.Debug("Command rejected",
			zap.String("player_id", c.playerID),
			zap.String("type", cmd.Type),
			zap.Error(err))
		c.sendEnvelope(Envelope{Event: eventError, ReplyTo: cmd.ID, Data: ErrorReply{Kind: c.hub.classify(err), Message: err.Error()}})
		return
	}
	c.sendEnvelope(Envelope{Event: eventCommandResult, ReplyTo: cmd.ID, Data: result})
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
