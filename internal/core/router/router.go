// Package router 是覆盖层引擎的事件循环。
//
// 引擎绑定到单个页面：周期性刷新价格、回收弹窗、解析站点选择器、标记价格元素并刷新告警参考价，
// 同时处理页面事件（悬停、离开、移动、值变更、选区换算、离开弹窗）。
// 所有状态只在 Run 所在的 goroutine 中修改；价格与目录的网络请求在后台执行，结果经通道回到循环。
package router

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"crypto-price-overlay/internal/catalog"
	"crypto-price-overlay/internal/core/alert"
	"crypto-price-overlay/internal/core/extract"
	"crypto-price-overlay/internal/core/geometry"
	"crypto-price-overlay/internal/core/model"
	"crypto-price-overlay/internal/core/overlay"
	"crypto-price-overlay/internal/core/store"
	"crypto-price-overlay/internal/core/tagger"
	"crypto-price-overlay/internal/dom"
	"crypto-price-overlay/internal/util/timeutil"
)

const (
	// TooltipMarker 价格元素标记 class
	TooltipMarker = "price-overlay-tooltip"
	// AlertMarker 告警触发元素标记 class
	AlertMarker = "price-overlay-alert"

	// DefaultTickInterval 默认周期刷新间隔
	DefaultTickInterval = time.Second
	// DefaultCleanupDelay 指针离开后回收弹窗的默认延迟
	DefaultCleanupDelay = 50 * time.Millisecond
)

// PriceSource 价格来源
type PriceSource interface {
	// Latest 返回最新价格表
	Latest(ctx context.Context) (model.PriceTable, error)
}

// Options 引擎选项
type Options struct {
	// TickInterval 周期刷新间隔
	TickInterval time.Duration
	// CleanupDelay 指针离开后回收弹窗的延迟
	CleanupDelay time.Duration
	// Currencies 悬停换算币种，空表示默认集合
	Currencies []string
	// SelectionCurrencies 选区换算币种，空表示同 Currencies
	SelectionCurrencies []string
	// TooltipMarker 价格元素标记 class
	TooltipMarker string
	// AlertMarker 告警触发元素标记 class
	AlertMarker string
	// Title 弹窗标题
	Title string
}

func (o *Options) setDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.CleanupDelay <= 0 {
		o.CleanupDelay = DefaultCleanupDelay
	}
	if o.TooltipMarker == "" {
		o.TooltipMarker = TooltipMarker
	}
	if o.AlertMarker == "" {
		o.AlertMarker = AlertMarker
	}
	if len(o.SelectionCurrencies) == 0 {
		o.SelectionCurrencies = o.Currencies
	}
}

type priceResult struct {
	table model.PriceTable
	err   error
}

type catalogResult struct {
	catalog *model.Catalog
	err     error
}

// Engine 单页面覆盖层引擎
type Engine struct {
	doc      dom.Document
	events   dom.EventSource
	prices   PriceSource
	catSrc   catalog.Source
	matcher  *catalog.Matcher
	opts     Options
	logger   *zap.Logger
	store    *store.PriceStore
	overlay  *overlay.State
	alerts   alert.State
	evaluate *alert.Evaluator

	// catalog 站点目录，nil 表示尚未加载
	catalog *model.Catalog
	// resolution 选择器解析结果（单向：Unresolved → NoMatch|Matched）
	resolution model.Resolution
	// cursor 最近一次指针视口坐标
	cursor geometry.Point

	// cleanupTimer 唯一的待执行回收定时器
	cleanupTimer *time.Timer
	cleanupC     <-chan time.Time

	priceDone     chan priceResult
	priceInFlight bool
	catDone       chan catalogResult
	catInFlight   bool
}

// New 创建引擎
// 参数 doc: 宿主页面
// 参数 events: 页面事件来源
// 参数 prices: 价格来源
// 参数 catSrc: 站点目录来源
// 参数 opts: 引擎选项
// 参数 logger: 日志记录器
func New(doc dom.Document, events dom.EventSource, prices PriceSource, catSrc catalog.Source, opts Options, logger *zap.Logger) *Engine {
	opts.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	ps := store.New()
	return &Engine{
		doc:       doc,
		events:    events,
		prices:    prices,
		catSrc:    catSrc,
		matcher:   catalog.NewMatcher(),
		opts:      opts,
		logger:    logger.Named("router"),
		store:     ps,
		overlay:   overlay.New(doc, ps, overlay.Options{Title: opts.Title}, logger),
		evaluate:  alert.NewEvaluator(opts.AlertMarker),
		priceDone: make(chan priceResult, 1),
		catDone:   make(chan catalogResult, 1),
	}
}

// Run 运行事件循环，直到 ctx 取消或事件通道关闭
// 启动时立即执行一次周期刷新。退出前移除全部弹窗。
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()
	defer e.Close()

	var events <-chan dom.Event
	if e.events != nil {
		events = e.events.Events()
	}

	e.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			e.HandleEvent(ev)

		case <-ticker.C:
			e.Tick(ctx)

		case <-e.cleanupC:
			e.cleanupTimer = nil
			e.cleanupC = nil
			e.overlay.Cleanup()

		case r := <-e.priceDone:
			e.applyPrices(r)

		case r := <-e.catDone:
			e.applyCatalog(r)
		}
	}
}

// Tick 周期刷新
// 依次执行：刷新价格、回收弹窗、解析选择器、标记价格元素、刷新告警。
func (e *Engine) Tick(ctx context.Context) {
	e.RefreshPrices(ctx)
	e.Cleanup()
	e.ResolveSelectors(ctx)
	e.TagPrices()
	e.RefreshAlerts()
}

// RefreshPrices 在后台请求最新价格表
// 同一时刻最多一个请求在途；结果由 Run 循环整体替换进价格存储。
func (e *Engine) RefreshPrices(ctx context.Context) {
	if e.prices == nil || e.priceInFlight {
		return
	}
	e.priceInFlight = true
	go func() {
		table, err := e.prices.Latest(ctx)
		e.priceDone <- priceResult{table: table, err: err}
	}()
}

func (e *Engine) applyPrices(r priceResult) {
	e.priceInFlight = false
	if r.err != nil {
		e.logger.Debug("刷新价格失败，沿用旧价格表",
			zap.Error(r.err),
			zap.Int64("age_ms", timeutil.SinceMs(e.store.FetchedAtMs())))
		return
	}
	if !e.store.Replace(r.table, timeutil.NowMs()) {
		e.logger.Debug("价格表为空，已忽略")
	}
}

// Cleanup 回收环境弹窗
func (e *Engine) Cleanup() {
	e.overlay.Cleanup()
}

// ResolveSelectors 解析当前页面的选择器
// 已解析（NoMatch 或 Matched）时不再执行；目录未加载时在后台加载并保持 Unresolved。
func (e *Engine) ResolveSelectors(ctx context.Context) {
	if e.resolution.IsResolved() {
		return
	}
	if e.catalog == nil {
		e.loadCatalog(ctx)
		return
	}
	e.resolution = e.matcher.Resolve(e.catalog, e.doc.URL())
	for pattern, err := range e.matcher.Invalid() {
		e.logger.Debug("忽略无效 URL 模式", zap.String("pattern", pattern), zap.Error(err))
	}
	e.logger.Debug("选择器解析完成",
		zap.String("url", e.doc.URL()),
		zap.Stringer("state", e.resolution.State),
		zap.String("selector", e.resolution.Selector))
}

func (e *Engine) loadCatalog(ctx context.Context) {
	if e.catSrc == nil || e.catInFlight {
		return
	}
	e.catInFlight = true
	go func() {
		c, err := e.catSrc.Fetch(ctx)
		e.catDone <- catalogResult{catalog: c, err: err}
	}()
}

func (e *Engine) applyCatalog(r catalogResult) {
	e.catInFlight = false
	if r.err != nil {
		if !errors.Is(r.err, catalog.ErrUnavailable) {
			e.logger.Warn("加载站点目录失败", zap.Error(r.err))
			return
		}
		e.logger.Debug("站点目录暂不可用", zap.Error(r.err))
		return
	}
	if r.catalog == nil {
		return
	}
	e.catalog = r.catalog
}

// SetCatalog 直接设置站点目录（用于已同步加载目录的场景）
func (e *Engine) SetCatalog(c *model.Catalog) {
	e.catalog = c
}

// TagPrices 为匹配的价格元素打上标记
// 仅在 Matched 状态执行；NoMatch 下永久空闲。
func (e *Engine) TagPrices() {
	if e.resolution.State != model.Matched {
		return
	}
	n, err := tagger.Tag(e.doc, e.resolution.Selector, e.opts.TooltipMarker)
	if err != nil {
		e.logger.Debug("标记价格元素失败", zap.Error(err))
		return
	}
	if n > 0 {
		e.logger.Debug("新增价格元素标记", zap.Int("count", n))
	}
}

// RefreshAlerts 刷新告警参考价并标记告警触发元素
// 参考价取 sources 第一个匹配元素中的首个数字；参考价为 0 时不标记触发元素。
func (e *Engine) RefreshAlerts() {
	rule, ok := e.matcher.ResolveAlerts(e.catalog, e.doc.URL())
	if !ok {
		return
	}

	nodes, err := e.doc.QueryAll(rule.SourceSelector())
	if err != nil {
		e.logger.Debug("查询参考价元素失败", zap.Error(err))
		return
	}
	if len(nodes) > 0 {
		if v, ok := extract.FromValueOrText(nodes[0].Value(), nodes[0].Text()); ok {
			e.alerts.ReferencePrice = v
		}
	}
	if !e.alerts.Known() {
		return
	}

	if _, err := tagger.Tag(e.doc, rule.TriggerSelector(), e.opts.AlertMarker); err != nil {
		e.logger.Debug("标记告警触发元素失败", zap.Error(err))
	}
}

// HandleEvent 分发页面事件
func (e *Engine) HandleEvent(ev dom.Event) {
	switch ev.Kind {
	case dom.PointerEnter:
		e.onPointerEnter(ev)
	case dom.PointerLeave:
		e.onPointerLeave(ev)
	case dom.PointerMove:
		e.cursor = geometry.Point{X: ev.ClientX, Y: ev.ClientY}
		e.overlay.Unlock()
	case dom.ValueChanged:
		e.checkAlert(ev.Target)
	case dom.SelectionTrigger:
		e.onSelection()
	case dom.PopupLeave:
		e.overlay.PopupLeft(ev.PopupID)
	default:
		e.logger.Debug("忽略未知事件", zap.Stringer("kind", ev.Kind))
	}
}

func (e *Engine) onPointerEnter(ev dom.Event) {
	if ev.Target == nil {
		return
	}
	if !e.overlay.Locked() && ev.Target.HasClass(e.opts.TooltipMarker) {
		if price, ok := extract.FromValueOrText(ev.Target.Value(), ev.Target.Text()); ok {
			at := geometry.Point{X: ev.ClientX, Y: ev.ClientY}
			if _, err := e.overlay.OpenAmbient(ev.Target, price, at, e.opts.Currencies); err != nil {
				e.logger.Debug("打开换算弹窗失败", zap.Error(err))
			}
		}
	}
	e.checkAlert(ev.Target)
}

func (e *Engine) onPointerLeave(ev dom.Event) {
	if e.cleanupTimer != nil {
		e.cleanupTimer.Stop()
	}
	e.cleanupTimer = time.NewTimer(e.opts.CleanupDelay)
	e.cleanupC = e.cleanupTimer.C
	e.checkAlert(ev.Target)
}

func (e *Engine) onSelection() {
	sel, ok, err := e.doc.Selection()
	if err != nil {
		e.logger.Debug("读取选区失败", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	price, ok := extract.FirstNumber(sel.Text)
	if !ok {
		return
	}
	if _, err := e.overlay.OpenForced(price, sel.Origin, e.opts.SelectionCurrencies); err != nil {
		e.logger.Debug("打开选区换算弹窗失败", zap.Error(err))
	}
}

func (e *Engine) checkAlert(target dom.Node) {
	if target == nil {
		return
	}
	msg, ok := e.evaluate.Evaluate(&e.alerts, target)
	if !ok {
		return
	}
	if _, err := e.overlay.OpenAlert(msg, e.cursor); err != nil {
		e.logger.Debug("打开告警弹窗失败", zap.Error(err))
	}
}

// Resolution 当前选择器解析结果
func (e *Engine) Resolution() model.Resolution {
	return e.resolution
}

// ReferencePrice 当前告警参考价，0 表示未知
func (e *Engine) ReferencePrice() float64 {
	return e.alerts.ReferencePrice
}

// Prices 价格存储
func (e *Engine) Prices() *store.PriceStore {
	return e.store
}

// Overlay 弹窗状态
func (e *Engine) Overlay() *overlay.State {
	return e.overlay
}

// Close 停止回收定时器并移除全部弹窗
func (e *Engine) Close() {
	if e.cleanupTimer != nil {
		e.cleanupTimer.Stop()
		e.cleanupTimer = nil
		e.cleanupC = nil
	}
	e.overlay.Close()
}
