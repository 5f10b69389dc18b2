// Package overlay 管理页面上的换算弹窗与告警弹窗。
//
// 弹窗分两类：
//   - 环境弹窗（ambient）：悬停触发，可同时存在多个，由 Cleanup 周期性回收；
//   - 强制弹窗（forced）：选区换算或告警触发，任意时刻最多一个，打开时加触发锁。
//
// 触发锁为真时不允许悬停打开新的环境弹窗，只有页面级指针移动才会解锁。
// 本包不做并发保护，调用方须在同一事件循环中串行调用。
package overlay

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crypto-price-overlay/internal/core/geometry"
	"crypto-price-overlay/internal/core/model"
	"crypto-price-overlay/internal/dom"
)

// PriceReader 读取当前价格表
type PriceReader interface {
	Table() model.PriceTable
}

// Options 弹窗选项
type Options struct {
	// Title 弹窗标题
	Title string
	// IDPrefix 弹窗元素 ID 前缀
	IDPrefix string
}

// State 弹窗生命周期状态
type State struct {
	doc    dom.Document
	prices PriceReader
	opts   Options
	logger *zap.Logger

	// ambient 环境弹窗（按打开顺序）
	ambient []dom.Popup
	// current 视觉上最新打开的弹窗
	current dom.Popup
	// trigger 打开 current 的页面元素（仅环境弹窗有）
	trigger dom.Node
	// forced 当前强制弹窗
	forced dom.Popup
	// locked 触发锁
	locked bool
}

// New 创建弹窗状态
// 参数 doc: 宿主页面
// 参数 prices: 价格表读取器
// 参数 opts: 弹窗选项
// 参数 logger: 日志记录器
func New(doc dom.Document, prices PriceReader, opts Options, logger *zap.Logger) *State {
	if opts.IDPrefix == "" {
		opts.IDPrefix = "price-overlay"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		doc:    doc,
		prices: prices,
		opts:   opts,
		logger: logger.Named("overlay"),
	}
}

// OpenAmbient 悬停打开换算弹窗
// 触发锁为真、尚无价格数据或没有可展示的币种时不打开。
// 未加锁时先移除残留的强制弹窗，与强制打开的替换规则一致。
// 参数 trigger: 触发元素
// 参数 price: 待换算的加密货币数量
// 参数 at: 指针视口坐标
// 参数 currencies: 展示币种，空表示默认集合
// 返回: 新弹窗；未打开时为 nil
func (s *State) OpenAmbient(trigger dom.Node, price float64, at geometry.Point, currencies []string) (dom.Popup, error) {
	if s.locked {
		return nil, nil
	}
	s.dropForced()

	content, ok := s.conversion(price, currencies)
	if !ok {
		return nil, nil
	}

	p, err := s.render(content, false, at)
	if err != nil {
		return nil, err
	}
	s.ambient = append(s.ambient, p)
	s.current = p
	s.trigger = trigger
	return p, nil
}

// OpenForced 打开强制换算弹窗
// 先同步移除已有的强制弹窗，再插入新弹窗并加锁。
func (s *State) OpenForced(price float64, at geometry.Point, currencies []string) (dom.Popup, error) {
	content, ok := s.conversion(price, currencies)
	if !ok {
		return nil, nil
	}
	return s.openExclusive(content, at)
}

// OpenAlert 打开告警弹窗，放置与替换规则同强制弹窗
func (s *State) OpenAlert(message string, at geometry.Point) (dom.Popup, error) {
	return s.openExclusive(dom.Content{Title: s.opts.Title, Message: message, Warning: true}, at)
}

func (s *State) openExclusive(content dom.Content, at geometry.Point) (dom.Popup, error) {
	s.dropForced()

	p, err := s.render(content, true, at)
	if err != nil {
		return nil, err
	}
	s.forced = p
	s.current = p
	s.trigger = nil
	s.locked = true
	return p, nil
}

// Cleanup 回收环境弹窗
// 以下情况保留：弹窗是 current 且其触发元素仍处于悬停；或弹窗容器自身处于悬停。
// 不处理强制弹窗。重复调用安全。
func (s *State) Cleanup() {
	kept := s.ambient[:0]
	for _, p := range s.ambient {
		if p.Removed() {
			continue
		}
		if s.protected(p) {
			kept = append(kept, p)
			continue
		}
		if err := p.Remove(); err != nil {
			s.logger.Debug("移除弹窗失败", zap.String("id", p.ID()), zap.Error(err))
			kept = append(kept, p)
			continue
		}
		if p == s.current {
			s.current = nil
			s.trigger = nil
		}
	}
	for i := len(kept); i < len(s.ambient); i++ {
		s.ambient[i] = nil
	}
	s.ambient = kept
}

func (s *State) protected(p dom.Popup) bool {
	if p == s.current && s.trigger != nil && s.trigger.Hovered() {
		return true
	}
	return p.Hovered()
}

// PopupLeft 指针离开弹窗
// 只对强制弹窗生效：移除该弹窗，触发锁保持不变。
func (s *State) PopupLeft(id string) {
	if s.forced == nil || s.forced.ID() != id {
		return
	}
	s.dropForced()
}

func (s *State) dropForced() {
	if s.forced == nil {
		return
	}
	if err := s.forced.Remove(); err != nil {
		s.logger.Debug("移除强制弹窗失败", zap.String("id", s.forced.ID()), zap.Error(err))
	}
	if s.current == s.forced {
		s.current = nil
	}
	s.forced = nil
}

// Unlock 清除触发锁（仅由指针移动调用）
func (s *State) Unlock() {
	s.locked = false
}

// Locked 触发锁状态
func (s *State) Locked() bool {
	return s.locked
}

// Ambient 当前环境弹窗（副本）
func (s *State) Ambient() []dom.Popup {
	out := make([]dom.Popup, len(s.ambient))
	copy(out, s.ambient)
	return out
}

// Forced 当前强制弹窗；没有时为 nil
func (s *State) Forced() dom.Popup {
	if s.forced != nil && s.forced.Removed() {
		s.forced = nil
	}
	return s.forced
}

// Current 视觉上最新的弹窗；没有时为 nil
func (s *State) Current() dom.Popup {
	return s.current
}

// Close 移除全部弹窗（页面卸载时调用）
func (s *State) Close() {
	for _, p := range s.ambient {
		_ = p.Remove()
	}
	s.ambient = nil
	s.dropForced()
	s.current = nil
	s.trigger = nil
	s.locked = false
}

// conversion 构造换算内容
// 返回: 内容，以及是否有可展示的币种（无价格数据时为 false）
func (s *State) conversion(price float64, currencies []string) (dom.Content, bool) {
	var table model.PriceTable
	if s.prices != nil {
		table = s.prices.Table()
	}
	if table == nil {
		return dom.Content{}, false
	}
	if len(currencies) == 0 {
		currencies = model.DefaultCurrencies
	}

	amount := decimal.NewFromFloat(price)
	lines := make([]dom.Line, 0, len(currencies))
	for _, code := range currencies {
		q, ok := table.Lookup(code)
		if !ok {
			continue
		}
		lines = append(lines, dom.Line{
			Code:   code,
			Symbol: q.Symbol,
			Amount: amount.Mul(decimal.NewFromFloat(q.Last)).StringFixed(3),
		})
	}
	if len(lines) == 0 {
		return dom.Content{}, false
	}
	return dom.Content{Title: s.opts.Title, Lines: lines}, true
}

// render 两段式渲染：隐藏插入 → 测量 → 定位 → 显示
func (s *State) render(content dom.Content, forced bool, at geometry.Point) (dom.Popup, error) {
	id := s.opts.IDPrefix + "-popup-"
	if forced {
		id += "active-"
	}
	id += uuid.NewString()

	p, err := s.doc.NewPopup(id, content)
	if err != nil {
		return nil, fmt.Errorf("创建弹窗失败: %w", err)
	}

	fail := func(step string, err error) (dom.Popup, error) {
		_ = p.Remove()
		return nil, fmt.Errorf("%s失败: %w", step, err)
	}

	size, err := p.Size()
	if err != nil {
		return fail("测量弹窗", err)
	}
	vp, err := s.doc.Viewport()
	if err != nil {
		return fail("读取视口", err)
	}
	if err := p.SetPosition(geometry.Place(at, size, vp)); err != nil {
		return fail("定位弹窗", err)
	}
	if err := p.Show(); err != nil {
		return fail("显示弹窗", err)
	}
	return p, nil
}
