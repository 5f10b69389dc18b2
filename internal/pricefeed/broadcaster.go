package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"crypto-price-overlay/internal/core/store"
	"crypto-price-overlay/internal/stats/latency"
	"crypto-price-overlay/internal/util/timeutil"
)

// BroadcasterOptions 广播服务选项
type BroadcasterOptions struct {
	// RefreshInterval 拉取行情的间隔
	RefreshInterval time.Duration
	// WriteTimeout websocket 写超时
	WriteTimeout time.Duration
	// PingInterval websocket 心跳间隔
	PingInterval time.Duration
	// Catalog 站点目录文档原文，由 /web-data.json 提供
	Catalog []byte
}

// Broadcaster 价格广播服务
// 周期拉取行情，成功后整体替换价格表并推送给全部 websocket 客户端；失败时保留上一份快照。
type Broadcaster struct {
	fetcher Fetcher
	opts    BroadcasterOptions
	hub     *Hub
	store   *store.PriceStore
	logger  *zap.Logger
	fetches *latency.Tracker

	failures int64
}

// NewBroadcaster 创建价格广播服务
// 参数 fetcher: 行情获取器
// 参数 opts: 服务选项
// 参数 logger: 日志记录器
func NewBroadcaster(fetcher Fetcher, opts BroadcasterOptions, logger *zap.Logger) *Broadcaster {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("broadcaster")
	return &Broadcaster{
		fetcher: fetcher,
		opts:    opts,
		hub:     NewHub(opts.WriteTimeout, opts.PingInterval, logger),
		store:   store.New(),
		logger:  logger,
		fetches: latency.NewTracker("fetch", 1000),
	}
}

// Run 立即拉取一次，然后按间隔周期拉取，直到 ctx 取消
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.opts.RefreshInterval)
	defer ticker.Stop()

	_ = b.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = b.Refresh(ctx)
		}
	}
}

// Refresh 拉取一次行情并广播
// 返回: 拉取失败时的错误（此时保留上一份快照）
func (b *Broadcaster) Refresh(ctx context.Context) error {
	startNs := timeutil.NowNano()
	table, err := b.fetcher.Fetch(ctx)
	b.fetches.Since(startNs)
	if err != nil {
		atomic.AddInt64(&b.failures, 1)
		b.logger.Warn("拉取行情失败，保留上一份快照", zap.Error(err))
		return err
	}

	nowMs := timeutil.NowMs()
	if !b.store.Replace(table, nowMs) {
		return fmt.Errorf("%w: 行情为空", ErrUnavailable)
	}
	if err := b.hub.Broadcast(NewSnapshot(table, nowMs)); err != nil {
		b.logger.Error("广播价格快照失败", zap.Error(err))
		return err
	}
	b.logger.Debug("价格快照已广播",
		zap.Int("currencies", len(table)),
		zap.Int("clients", b.hub.Clients()))
	return nil
}

// Latest 最新快照；尚未成功拉取时 ok 为 false
func (b *Broadcaster) Latest() (Snapshot, bool) {
	table := b.store.Table()
	if table == nil {
		return Snapshot{}, false
	}
	return NewSnapshot(table, b.store.FetchedAtMs()), true
}

// Failures 累计拉取失败次数
func (b *Broadcaster) Failures() int64 {
	return atomic.LoadInt64(&b.failures)
}

// FetchLatency 行情拉取耗时统计
func (b *Broadcaster) FetchLatency() latency.Stats {
	return b.fetches.Stats()
}

// Handler HTTP 路由
//
//	GET /ws/prices     websocket 价格推送
//	GET /api/prices    最新快照 JSON
//	GET /web-data.json 站点目录文档
//	GET /healthz       健康检查
func (b *Broadcaster) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", b.healthzHandler)
	r.Get("/api/prices", b.pricesHandler)
	r.Get("/web-data.json", b.catalogHandler)
	r.Handle("/ws/prices", b.hub)
	return r
}

// Close 断开全部 websocket 连接
func (b *Broadcaster) Close() {
	b.hub.Close()
}

func (b *Broadcaster) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"clients":       b.hub.Clients(),
		"fetched_at_ms": b.store.FetchedAtMs(),
		"failures":      b.Failures(),
		"fetch_latency": b.FetchLatency(),
	})
}

func (b *Broadcaster) pricesHandler(w http.ResponseWriter, r *http.Request) {
	snap, ok := b.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": ErrUnavailable.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (b *Broadcaster) catalogHandler(w http.ResponseWriter, r *http.Request) {
	if len(b.opts.Catalog) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b.opts.Catalog)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
