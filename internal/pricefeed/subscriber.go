package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crypto-price-overlay/internal/core/model"
	"crypto-price-overlay/internal/util/backoff"
	"crypto-price-overlay/internal/util/timeutil"
)

// Subscriber 价格广播订阅客户端
// 保存最近一次收到的快照；连接断开后按指数退避重连。
type Subscriber struct {
	// url 广播服务 websocket 地址
	url string
	// logger 日志记录器
	logger *zap.Logger
	// readTimeout 读超时，收到任意消息或 ping 时顺延
	readTimeout time.Duration

	// conn WebSocket 连接
	conn *websocket.Conn
	// connMu 连接锁
	connMu sync.Mutex

	// latest 最近一次快照
	latest atomic.Pointer[Snapshot]
	// updates 收到的快照数
	updates int64
	// reconnects 重连次数
	reconnects int64
	// lastMsgTime 最后消息时间（纳秒）
	lastMsgTime int64
	// backoff 重连退避
	backoff *backoff.Backoff
	// closed 是否已关闭
	closed int32
}

// NewSubscriber 创建订阅客户端
// 参数 url: 广播服务 websocket 地址，如 ws://127.0.0.1:8787/ws/prices
// 参数 logger: 日志记录器
func NewSubscriber(url string, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		url:         url,
		logger:      logger.Named("subscriber"),
		readTimeout: 90 * time.Second,
		backoff:     backoff.NewDefault(),
	}
}

// Connect 建立 WebSocket 连接
// 参数 ctx: 上下文，用于取消连接
func (s *Subscriber) Connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	header := http.Header{}
	header.Set("User-Agent", "crypto-price-overlay/1.0")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("连接价格广播失败: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	conn.SetPingHandler(func(data string) error {
		atomic.StoreInt64(&s.lastMsgTime, timeutil.NowNano())
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	s.conn = conn
	s.backoff.Reset()
	s.logger.Info("价格广播连接成功", zap.String("url", s.url))
	return nil
}

// Run 读取循环，直到 ctx 取消或 Close
// 未连接或读取失败时自动重连。
func (s *Subscriber) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if atomic.LoadInt32(&s.closed) == 1 {
			return
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			s.reconnect(ctx)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&s.closed) == 1 {
				return
			}
			s.logger.Warn("读取价格广播失败", zap.Error(err))
			atomic.AddInt64(&s.reconnects, 1)
			s.reconnect(ctx)
			continue
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		atomic.StoreInt64(&s.lastMsgTime, timeutil.NowNano())

		if err := s.handle(data); err != nil {
			s.logger.Debug("忽略无效消息", zap.Error(err))
		}
	}
}

// handle 解析快照消息；价格表为空的快照忽略
func (s *Subscriber) handle(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("解析快照失败: %w", err)
	}
	if snap.Type != MessageTypePrices {
		return fmt.Errorf("未知消息类型: %s", snap.Type)
	}
	if len(snap.Prices) == 0 {
		return fmt.Errorf("快照价格表为空")
	}
	s.latest.Store(&snap)
	atomic.AddInt64(&s.updates, 1)
	s.logger.Debug("收到价格快照",
		zap.Int("currencies", len(snap.Prices)),
		zap.Time("fetched_at", timeutil.MsToTime(snap.FetchedAtMs)))
	return nil
}

// Latest 返回最近一次收到的价格表
// 尚未收到任何快照时返回 ErrUnavailable。
func (s *Subscriber) Latest(ctx context.Context) (model.PriceTable, error) {
	snap := s.latest.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: 尚未收到价格快照", ErrUnavailable)
	}
	return snap.Prices, nil
}

// Snapshot 最近一次快照
func (s *Subscriber) Snapshot() (Snapshot, bool) {
	snap := s.latest.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, true
}

// Updates 收到的快照数
func (s *Subscriber) Updates() int64 {
	return atomic.LoadInt64(&s.updates)
}

// Reconnects 重连次数
func (s *Subscriber) Reconnects() int64 {
	return atomic.LoadInt64(&s.reconnects)
}

func (s *Subscriber) reconnect(ctx context.Context) {
	s.closeConn()

	s.logger.Info("价格广播准备重连", zap.Int("attempt", s.backoff.Attempt()+1))
	if err := s.backoff.Wait(ctx); err != nil {
		return
	}

	if err := s.Connect(ctx); err != nil {
		s.logger.Warn("价格广播重连失败", zap.Error(err))
	}
}

func (s *Subscriber) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// Close 关闭客户端
func (s *Subscriber) Close() error {
	atomic.StoreInt32(&s.closed, 1)
	s.closeConn()
	s.logger.Info("价格广播订阅已关闭")
	return nil
}
