package pricefeed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub websocket 连接集合
// 记住最后一条广播，新连接建立后立即推送。
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.Logger

	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	last    []byte
	closed  bool
}

type hubClient struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (c *hubClient) stop() {
	c.once.Do(func() { close(c.done) })
}

// NewHub 创建 websocket 连接集合
// 参数 writeTimeout: 单条消息写超时
// 参数 pingInterval: 心跳间隔
// 参数 logger: 日志记录器
func NewHub(writeTimeout, pingInterval time.Duration, logger *zap.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			// 覆盖层运行在任意站点上，不校验 Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		logger:       logger.Named("hub"),
		clients:      make(map[*hubClient]struct{}),
	}
}

// Broadcast 向全部连接推送消息
// 客户端发送队列已满时丢弃该条消息。
func (h *Hub) Broadcast(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("序列化广播消息失败: %w", err)
	}

	h.mu.Lock()
	h.last = data
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.out <- data:
		default:
			h.logger.Warn("客户端发送队列已满，丢弃消息")
		}
	}
	return nil
}

// ServeHTTP 升级为 websocket 连接并保持到对端断开
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket 升级失败", zap.Error(err))
		return
	}

	c := &hubClient{conn: conn, out: make(chan []byte, 16), done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	last := h.last
	h.mu.Unlock()

	h.logger.Info("客户端已连接", zap.String("remote", r.RemoteAddr), zap.Int("clients", h.Clients()))

	if last != nil {
		c.out <- last
	}

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
	_ = conn.Close()
	h.logger.Info("客户端已断开", zap.String("remote", r.RemoteAddr))
}

// readLoop 读取并丢弃客户端消息，直到连接出错
func (h *Hub) readLoop(c *hubClient) {
	readTimeout := 3 * h.pingInterval
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("写入客户端失败", zap.Error(err))
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(h.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				h.logger.Debug("发送 ping 失败", zap.Error(err))
				_ = c.conn.Close()
				return
			}
		}
	}
}

// Clients 当前连接数
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 断开全部连接并拒绝新连接
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*hubClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		deadline := time.Now().Add(h.writeTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
		_ = c.conn.Close()
		c.stop()
	}
}
