// Package ws serves realtime order events over WebSocket. Each connection
// is bound to one broadcaster subscription chosen from the caller's
// identity: operators follow every order, customers only their own.
package ws

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Aidin1998/foodhub/internal/identity"
	"github.com/Aidin1998/foodhub/internal/realtime"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	shardCount     = 16
)

// Client represents a single WebSocket connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	sub    *realtime.Subscription
	send   chan realtime.Event
	hub    *Hub
	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks live connections, sharded for concurrency.
type Hub struct {
	broadcaster *realtime.Broadcaster
	logger      *zap.Logger
	shards      [shardCount]*hubShard
	nextID      atomic.Uint64
	upgrader    websocket.Upgrader
}

type hubShard struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a hub on top of b. allowedOrigins empty accepts any origin.
func NewHub(b *realtime.Broadcaster, allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		broadcaster: b,
		logger:      logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
	for i := range h.shards {
		h.shards[i] = &hubShard{clients: make(map[*Client]struct{})}
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// TopicsFor returns the topics an identity may follow.
func TopicsFor(id identity.Identity) []string {
	if id.IsOperator() {
		return []string{realtime.TopicOrders}
	}
	return []string{realtime.CustomerTopic(id.Phone)}
}

func (h *Hub) shardFor(key string) *hubShard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return h.shards[hasher.Sum32()%shardCount]
}

// ServeWS upgrades the request and streams events for id until the peer
// goes away or the subscription ends. The subscription is registered
// before the upgrade completes so no event published after this call
// begins is missed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	sub := h.broadcaster.Subscribe(TopicsFor(id)...)
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		h.logger.Debug("Upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		id:     strconv.FormatUint(h.nextID.Add(1), 10),
		conn:   conn,
		sub:    sub,
		send:   make(chan realtime.Event, 16),
		hub:    h,
		ctx:    ctx,
		cancel: cancel,
	}
	h.register(c)
	h.logger.Info("Client connected",
		zap.String("client", c.id),
		zap.String("role", string(id.Role)),
		zap.Uint64("subscription", sub.ID()))

	go c.pump()
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	sh := h.shardFor(c.id)
	sh.mu.Lock()
	sh.clients[c] = struct{}{}
	sh.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	sh := h.shardFor(c.id)
	sh.mu.Lock()
	_, ok := sh.clients[c]
	delete(sh.clients, c)
	sh.mu.Unlock()
	if ok {
		h.logger.Info("Client disconnected", zap.String("client", c.id), zap.Int("dropped", c.sub.Dropped()))
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	n := 0
	for _, sh := range h.shards {
		sh.mu.RLock()
		n += len(sh.clients)
		sh.mu.RUnlock()
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, sh := range h.shards {
		sh.mu.RLock()
		clients := make([]*Client, 0, len(sh.clients))
		for c := range sh.clients {
			clients = append(clients, c)
		}
		sh.mu.RUnlock()
		for _, c := range clients {
			c.close()
		}
	}
}

func (c *Client) close() {
	c.cancel()
	c.sub.Close()
	c.hub.unregister(c)
}

// pump moves events from the subscription to the write loop. The
// subscription queue absorbs bursts; pump itself may block.
func (c *Client) pump() {
	defer close(c.send)
	for {
		ev, err := c.sub.Next(c.ctx)
		if err != nil {
			if err == realtime.ErrSlowConsumer {
				c.hub.logger.Warn("Client evicted", zap.String("client", c.id))
			}
			return
		}
		select {
		case c.send <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

// readPump handles incoming control frames. Topics are fixed by identity,
// so any data frame is ignored.
func (c *Client) readPump() {
	defer func() { c.close(); c.conn.Close() }()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends events and heartbeats to the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() { ticker.Stop(); c.close(); c.conn.Close() }()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription ended"))
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				c.hub.logger.Error("Failed to encode event", zap.String("event_id", ev.ID), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
