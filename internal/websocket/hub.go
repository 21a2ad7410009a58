package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer and the token check
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is pushed to the owning user whenever a filing or TIN application changes state.
type Event struct {
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	Reference  string    `json:"reference_number,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

// Hub maintains the set of active clients per user and routes events to them
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	messages   chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
	logger     zerolog.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		messages:   make(chan message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the core dispatch loop for WebSocket events. It returns after Close.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for _, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			return
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.logger.Debug().Str("user_id", client.UserID.String()).Msg("websocket client connected")
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.messages:
			for client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.payload:
				default:
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	h.logger.Debug().Str("user_id", client.UserID.String()).Msg("websocket client disconnected")
}

// Close stops Run and closes every client's send channel.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Publish queues an event for every connection of userID. It never blocks the caller;
// events are dropped when the queue is full.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("failed to marshal websocket event")
		return
	}
	select {
	case h.messages <- message{userID: userID, payload: payload}:
	default:
		h.logger.Warn().Str("type", event.Type).Msg("websocket queue full, event dropped")
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive until the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn().Err(err).Msg("websocket read failed")
			}
			break
		}
	}
}

// ServeWs authenticates the token query param and subscribes the connection to its user's events
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.logger.Info().Msg("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		hub.logger.Info().Err(err).Msg("websocket connection rejected: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		hub.logger.Info().Str("sub", sub).Msg("websocket connection rejected: subject is not a user id")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), UserID: userID}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
