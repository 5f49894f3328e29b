package control

import (
	"Typist/internal/service/typing"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// таймаут записи кадра
	writeWait = 10 * time.Second
	// без pong дольше этого соединение считается мёртвым
	pongWait = 60 * time.Second
	// строго меньше pongWait
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Hub рассылает события движка всем подключённым клиентам /events.
// Медленный клиент с переполненным буфером отключается.
type Hub struct {
	logger *zap.SugaredLogger

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	connected  atomic.Int32
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run: главный цикл хаба; при отмене ctx закрывает всех клиентов.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				c.close()
			}
			h.connected.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Store(int32(len(h.clients)))
			h.logger.Infow("Control client connected", "remote", c.remote, "total", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
				h.connected.Store(int32(len(h.clients)))
				h.logger.Infow("Control client disconnected", "remote", c.remote, "remaining", len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					c.close()
					h.connected.Store(int32(len(h.clients)))
					h.logger.Warnw("Dropped slow control client", "remote", c.remote)
				}
			}
		}
	}
}

// Broadcast ставит сообщение в рассылку; при переполнении сообщение теряется.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warnw("Control broadcast channel full, dropping message")
	}
}

// ClientCount возвращает число подключённых клиентов.
func (h *Hub) ClientCount() int { return int(h.connected.Load()) }

// Listener: подписчик движка, пересылающий события в хаб.
func (h *Hub) Listener() typing.Listener {
	return func(ev typing.Event) {
		data, err := json.Marshal(newEventMessage(ev))
		if err != nil {
			h.logger.Warnw("Failed to encode event", "event", ev.Type, "error", err)
			return
		}
		h.Broadcast(data)
	}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
	onCmd  func(Command) error

	// mu защищает send от записи после закрытия хабом
	mu     sync.Mutex
	closed bool
}

// close закрывает send один раз; вызывает только хаб.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump читает команды клиента и следит за pong.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debugw("Control client read error", "remote", c.remote, "error", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.reply(EventMessage{Type: "error", Error: "invalid command: " + err.Error(), At: time.Now()})
			continue
		}
		if err := c.onCmd(cmd); err != nil {
			c.reply(EventMessage{Type: "error", Error: err.Error(), At: time.Now()})
		}
	}
}

// reply отправляет ответ только этому клиенту, минуя хаб.
func (c *client) reply(m EventMessage) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump: единственный писатель в соединение.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
