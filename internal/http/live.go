package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/refi-pool-dashboard/internal/dashboard"
)

// liveClient is one /ws connection. Only the writer goroutine writes to
// conn; sendMu guards the send channel against close races.
type liveClient struct {
	id     string
	conn   *websocket.Conn
	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

func newLiveClient(conn *websocket.Conn) *liveClient {
	return &liveClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, liveSendBuffer),
	}
}

// enqueue drops the message when the client is not keeping up.
func (c *liveClient) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *liveClient) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *liveClient) writer() {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Warn("live write failed", "client", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reader drains control frames until the peer goes away.
func (c *liveClient) reader(onDone func()) {
	defer onDone()

	c.conn.SetReadLimit(liveReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("live read failed", "client", c.id, "error", err)
			}
			return
		}
	}
}

// liveHub fans dashboard views out to every connected client.
type liveHub struct {
	display *dashboard.Display

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

func newLiveHub(display *dashboard.Display) *liveHub {
	return &liveHub{
		display: display,
		clients: make(map[*liveClient]struct{}),
	}
}

func (h *liveHub) run(ctx context.Context) {
	views := make(chan dashboard.View, liveSendBuffer)
	sub := h.display.Subscribe(views)
	defer sub.Unsubscribe()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				log.Warn("live feed ended", "error", err)
			}
			return
		case v := <-views:
			msg, err := encodeLive(v)
			if err != nil {
				log.Error("live encode failed", "error", err)
				continue
			}
			h.broadcast(msg)
		}
	}
}

func encodeLive(v dashboard.View) ([]byte, error) {
	return json.Marshal(newLiveMessage(v))
}

func (h *liveHub) add(c *liveClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Info("live client connected", "client", c.id, "clients", h.count())
}

func (h *liveHub) remove(c *liveClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
		log.Info("live client disconnected", "client", c.id, "clients", h.count())
	}
}

func (h *liveHub) broadcast(msg []byte) {
	h.mu.Lock()
	clients := make([]*liveClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.enqueue(msg) {
			log.Warn("live client too slow, dropping", "client", c.id)
			h.remove(c)
		}
	}
}

func (h *liveHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *liveHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*liveClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
	}
}
