package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agentmux/agentmux-core/internal/common/logger"
	"github.com/agentmux/agentmux-core/internal/events/bus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// subscriptionMessage is sent by clients to subscribe/unsubscribe from bus
// subjects (e.g. "task.*", "team.member.status_changed").
type subscriptionMessage struct {
	Action   string   `json:"action"` // subscribe, unsubscribe
	Subjects []string `json:"subjects"`
}

// client is one connected websocket subscriber.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *logger.Logger

	mu   sync.RWMutex
	subs map[string]bus.Subscription
}

// Hub bridges the in-process event bus to websocket clients: a client
// subscribes to subjects it cares about, and every matching bus event is
// forwarded to its send channel as JSON.
type Hub struct {
	events bus.EventBus
	log    *logger.Logger

	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub builds a Hub over events.
func NewHub(events bus.EventBus, log *logger.Logger) *Hub {
	return &Hub{events: events, log: log.WithFields(zap.String("component", "ws-hub")), clients: make(map[*client]bool)}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	c.mu.Lock()
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.mu.Unlock()
	close(c.send)
}

// ServeWS upgrades an HTTP request to a websocket connection and starts
// its read/write pumps.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, 32), log: h.log, subs: make(map[string]bus.Subscription)}
	h.register(cl)

	go cl.writePump()
	go cl.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", zap.Error(err))
			}
			break
		}

		var sub subscriptionMessage
		if err := json.Unmarshal(message, &sub); err != nil {
			c.log.Warn("invalid subscription message", zap.Error(err))
			continue
		}

		switch sub.Action {
		case "subscribe":
			for _, s := range sub.Subjects {
				c.subscribeSubject(s)
			}
		case "unsubscribe":
			for _, s := range sub.Subjects {
				c.unsubscribeSubject(s)
			}
		default:
			c.log.Warn("unknown websocket action", zap.String("action", sub.Action))
		}
	}
}

func (c *client) subscribeSubject(subject string) {
	c.mu.Lock()
	if _, ok := c.subs[subject]; ok {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	handler := func(_ context.Context, evt *bus.Event) error {
		payload, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		c.trySend(payload)
		return nil
	}

	sub, err := c.hub.events.Subscribe(subject, handler)
	if err != nil {
		c.log.Warn("failed to subscribe", zap.String("subject", subject), zap.Error(err))
		return
	}
	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
}

func (c *client) unsubscribeSubject(subject string) {
	c.mu.Lock()
	sub, ok := c.subs[subject]
	if ok {
		delete(c.subs, subject)
	}
	c.mu.Unlock()
	if ok {
		sub.Unsubscribe()
	}
}

func (c *client) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) writePump() {
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

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
