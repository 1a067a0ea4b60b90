package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/prom"
	"github.com/nimasrn/community-gateway/pkg/redis"
)

const channelPrefix = "chat-room-"

const (
	defaultSendBuffer = 256
	defaultPongWait   = 60 * time.Second
	defaultWriteWait  = 10 * time.Second
	maxClientMessage  = 512
)

// MembershipChecker decides whether a user may listen to a room.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

type HubConfig struct {
	// AllowedOrigins restricts the Origin header of upgrade requests. Empty allows any.
	AllowedOrigins []string
	SendBuffer     int
	PongWait       time.Duration
	WriteWait      time.Duration
}

// Hub is the websocket edge of the relay. It follows every room channel in
// Redis and forwards each envelope, unchanged, to the clients of that room.
type Hub struct {
	redis    redis.RedisAdapter
	members  MembershipChecker
	config   HubConfig
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}

	ready     chan struct{}
	readyOnce sync.Once
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	roomID string
	userID string
}

func NewHub(adapter redis.RedisAdapter, members MembershipChecker, config HubConfig) *Hub {
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaultSendBuffer
	}
	if config.PongWait <= 0 {
		config.PongWait = defaultPongWait
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaultWriteWait
	}

	h := &Hub{
		redis:   adapter,
		members: members,
		config:  config,
		rooms:   make(map[string]map[*client]struct{}),
		ready:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Ready is closed once the Redis subscription is active.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Run forwards room events until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	ps := h.redis.Client().PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe room channels: %w", err)
	}
	h.readyOnce.Do(func() { close(h.ready) })
	logger.Info("Relay hub subscribed", "pattern", channelPrefix+"*")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case msg, ok := <-ch:
			if !ok {
				h.closeAll()
				return errors.New("room subscription closed")
			}
			h.broadcast(strings.TrimPrefix(msg.Channel, channelPrefix), []byte(msg.Payload))
		}
	}
}

// Clients reports how many connections listen to roomID.
func (h *Hub) Clients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// ServeHTTP upgrades GET /ws?room_id=<id> for a member of the room. The caller
// is taken from X-User-ID, or user_id in the query since browsers cannot set
// headers on websocket requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if roomID == "" || userID == "" {
		http.Error(w, "room_id and user are required", http.StatusBadRequest)
		return
	}

	member, err := h.members.IsMember(r.Context(), roomID, userID)
	if err != nil {
		logger.Error("Relay membership check failed", "room_id", roomID, "user_id", userID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "not a member of this room", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "room_id", roomID, "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.config.SendBuffer),
		roomID: roomID,
		userID: userID,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.roomID]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[c.roomID] = clients
	}
	clients[c] = struct{}{}
	h.mu.Unlock()

	prom.AddRelayConnections("websocket", 1)
	logger.Debug("Relay client connected", "room_id", c.roomID, "user_id", c.userID)
}

// unregister removes c and closes its send channel. Only the first call for a
// client has any effect.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.roomID)
	}
	close(c.send)
	h.mu.Unlock()

	prom.AddRelayConnections("websocket", -1)
	logger.Debug("Relay client disconnected", "room_id", c.roomID, "user_id", c.userID)
}

func (h *Hub) broadcast(roomID string, payload []byte) {
	var slow []*client

	h.mu.RLock()
	for c := range h.rooms[roomID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		prom.AddRelayDropped("slow_consumer")
		logger.Warn("Relay client too slow, disconnecting", "room_id", roomID, "user_id", c.userID)
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	var n int
	for roomID, clients := range h.rooms {
		for c := range clients {
			close(c.send)
			n++
		}
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	if n > 0 {
		prom.AddRelayConnections("websocket", float64(-n))
	}
}

// readPump only services control frames; clients never publish through the relay.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	pongWait := c.hub.config.PongWait
	c.conn.SetReadLimit(maxClientMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Relay client read failed", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	writeWait := c.hub.config.WriteWait
	ticker := time.NewTicker(c.hub.config.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("Relay client write failed", "user_id", c.userID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
