// Package websocket 实时事件推送
//
// Hub 维护已认证的浏览器连接，把附件、提交、卡片事件广播给前端，
// 看板页面据此实时刷新而无需轮询。
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskboard/backend/internal/monitoring"
	"taskboard/backend/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client 一个已连接的浏览器会话
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
	role   string
}

// Hub 连接集线器
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHub 创建集线器
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     logger,
	}
}

// SetMetrics 设置监控指标
func (h *Hub) SetMetrics(m *monitoring.Metrics) { h.metrics = m }

// Run 运行集线器主循环，直到 done 关闭
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.UsersOnline.Set(float64(count))
			}
			h.logger.Debug("websocket client connected",
				zap.String("user_id", client.userID), zap.Int("total", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if h.metrics != nil {
				h.metrics.UsersOnline.Set(float64(count))
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 发送缓冲已满的慢客户端直接丢弃该条消息
				}
			}
			h.mu.RUnlock()
		}
	}
}

// closeAll 关闭所有连接
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Publish 实现 service.EventPublisher，把领域事件序列化后广播
func (h *Hub) Publish(event service.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("event broadcast queue full, dropping event", zap.String("type", event.Type))
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域校验由 CORS 中间件统一处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeClient 升级 HTTP 连接并注册到集线器
//
// 调用方（handler）负责先完成 JWT 认证，把用户身份传入。
func (h *Hub) ServeClient(w http.ResponseWriter, r *http.Request, userID, role string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		role:   role,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump 读取循环，只用于心跳与感知断开，不接受客户端指令
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

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

// writePump 写出循环，附带周期性 ping 保活
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
