package status

import (
	"net/http"
	"sync"
	"time"

	"screenpipe/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The control API binds to loopback only.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Broadcaster fans session status updates out to WebSocket subscribers. A
// slow subscriber is disconnected rather than allowed to stall the others;
// status updates are advisory and the latest one always wins.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	last    *domain.RecordingStatus

	writeTimeout time.Duration
	logger       *zap.SugaredLogger
}

type client struct {
	conn *websocket.Conn
	send chan domain.RecordingStatus
}

func NewBroadcaster(logger *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{
		clients:      make(map[*client]struct{}),
		writeTimeout: 10 * time.Second,
		logger:       logger,
	}
}

// Publish delivers a status update to every subscriber without blocking the
// caller. Subscribers whose buffers are full miss intermediate updates.
func (b *Broadcaster) Publish(status domain.RecordingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = &status
	for c := range b.clients {
		select {
		case c.send <- status:
		default:
		}
	}
}

// HandleConnection upgrades the request and streams status updates until the
// subscriber disconnects. The latest known status is sent immediately.
func (b *Broadcaster) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan domain.RecordingStatus, 8),
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	if b.last != nil {
		c.send <- *b.last
	}
	b.mu.Unlock()

	go b.writePump(c)
	b.readPump(c)
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *Broadcaster) writePump(c *client) {
	for status := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
		if err := c.conn.WriteJSON(status); err != nil {
			b.remove(c)
			return
		}
	}
}

// readPump discards inbound messages; its job is to notice the disconnect.
func (b *Broadcaster) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			b.remove(c)
			return
		}
	}
}

func (b *Broadcaster) remove(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
	_ = c.conn.Close()
}
