package websocket

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/crapthings/storyboard/internal/logger"
)

// Event types broadcast on storyboard topics.
const (
	EventAssetCreated  = "asset_created"
	EventAssetUpdated  = "asset_updated"
	EventAssetDeleted  = "asset_deleted"
	EventStatsUpdated  = "stats_updated"
	EventActiveChanged = "active_changed"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// StoryboardTopic is the topic clients subscribe to for one storyboard.
func StoryboardTopic(storyboardID string) string {
	return "storyboard:" + storyboardID
}

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub tracks connected clients and the topics each one follows. Publishing
// only touches the subscribers of the topic.
type Hub struct {
	mu             sync.RWMutex
	clients        map[*Client]struct{}
	topics         map[string]map[*Client]struct{}
	unregister     chan *Client
	done           chan struct{}
	allowedOrigins []string
}

// NewHub creates a hub accepting browser connections from allowedOrigins.
// Connections without an Origin header are always accepted.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients:        make(map[*Client]struct{}),
		topics:         make(map[string]map[*Client]struct{}),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		allowedOrigins: allowedOrigins,
	}
}

// Run removes disconnected clients until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()
			logger.WS("disconnected", client.id)
		}
	}
}

// Stop signals the Hub.Run goroutine to exit.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// dropLocked forgets a client and closes its send channel. h.mu must be held.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for topic, subs := range h.topics {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	close(c.send)
}

func (h *Hub) subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	subs := h.topics[topic]
	if subs == nil {
		subs = make(map[*Client]struct{})
		h.topics[topic] = subs
	}
	subs[c] = struct{}{}
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.topics[topic]; subs != nil {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish sends an event with the given payload to subscribers of topic.
func (h *Hub) Publish(topic, eventType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal %s payload: %v", eventType, err)
		return
	}
	data, err := json.Marshal(Message{Type: eventType, Payload: raw})
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	for c := range h.topics[topic] {
		select {
		case c.send <- data:
		default:
			// Slow consumer; it reconnects and refetches.
			h.dropLocked(c)
		}
	}
	h.mu.Unlock()
	logger.WS(eventType, topic)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.allowedOrigins, origin)
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		id:   uuid.New().String()[:8] + " " + r.RemoteAddr,
	}

	// Registered before the pumps start so the first subscribe can be acked.
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	logger.WS("connected", client.id)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg struct {
			Type  string `json:"type"`
			Topic string `json:"topic"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.Topic == "" {
			continue
		}
		switch msg.Type {
		case "subscribe":
			c.hub.subscribe(c, msg.Topic)
			c.ack("subscribed", msg.Topic)
		case "unsubscribe":
			c.hub.unsubscribe(c, msg.Topic)
			c.ack("unsubscribed", msg.Topic)
		}
	}
}

// ack confirms a subscription change so clients know when events will flow.
func (c *Client) ack(kind, topic string) {
	raw, _ := json.Marshal(map[string]string{"topic": topic})
	data, _ := json.Marshal(Message{Type: kind, Payload: raw})
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

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
