// Package pwdom 基于 playwright-go 的浏览器页面实现。
//
// 页面脚本在捕获阶段监听指针与表单事件，通过暴露的回调投递到 Go 侧事件通道；
// 元素通过 data-overlay-node 属性寻址，所有读写经 Page.Evaluate 完成。
package pwdom

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"crypto-price-overlay/internal/core/geometry"
	"crypto-price-overlay/internal/dom"
)

// ErrDetached 元素或弹窗已不在页面中
var ErrDetached = errors.New("元素已不在页面中")

// Page 页面求值接口（playwright.Page 满足该接口）
type Page interface {
	URL() string
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
}

// rawEvent 页面脚本投递的事件
type rawEvent struct {
	Kind  string  `json:"kind"`
	Node  string  `json:"node"`
	Popup string  `json:"popup"`
	URL   string  `json:"url"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Document 浏览器页面
type Document struct {
	page   Page
	logger *zap.Logger

	events   chan dom.Event
	attached chan string
}

// New 创建页面包装（不安装页面脚本）
// 参数 page: 页面
// 参数 logger: 日志记录器
func New(page Page, logger *zap.Logger) *Document {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Document{
		page:     page,
		logger:   logger.Named("pwdom"),
		events:   make(chan dom.Event, 256),
		attached: make(chan string, 8),
	}
}

// Attach 绑定浏览器页面：注册事件回调、安装页面脚本（含后续导航）
func Attach(page playwright.Page, logger *zap.Logger) (*Document, error) {
	d := New(page, logger)
	if err := page.ExposeFunction(BindingName, d.expose); err != nil {
		return nil, fmt.Errorf("注册事件回调失败: %w", err)
	}
	script := initScript
	if err := page.AddInitScript(playwright.Script{Content: &script}); err != nil {
		return nil, fmt.Errorf("安装页面脚本失败: %w", err)
	}
	if _, err := page.Evaluate(initScript); err != nil {
		return nil, fmt.Errorf("执行页面脚本失败: %w", err)
	}
	return d, nil
}

// expose 页面回调入口
func (d *Document) expose(args ...interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	payload, ok := args[0].(string)
	if !ok {
		d.logger.Debug("忽略非字符串事件载荷")
		return nil
	}
	d.receive(payload)
	return nil
}

// receive 解析并投递页面事件；队列满时丢弃
func (d *Document) receive(payload string) {
	var raw rawEvent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		d.logger.Debug("解析页面事件失败", zap.Error(err))
		return
	}

	if raw.Kind == "attached" {
		select {
		case d.attached <- raw.URL:
		default:
		}
		return
	}

	ev, err := d.decode(raw)
	if err != nil {
		d.logger.Debug("忽略页面事件", zap.String("kind", raw.Kind), zap.Error(err))
		return
	}
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("事件队列已满，丢弃事件", zap.Stringer("kind", ev.Kind))
	}
}

func (d *Document) decode(raw rawEvent) (dom.Event, error) {
	kind, ok := dom.ParseEventKind(raw.Kind)
	if !ok {
		return dom.Event{}, fmt.Errorf("未知事件类型: %s", raw.Kind)
	}
	ev := dom.Event{Kind: kind, PopupID: raw.Popup, ClientX: raw.X, ClientY: raw.Y}
	if raw.Node != "" {
		ev.Target = &Node{doc: d, id: raw.Node}
	}
	return ev, nil
}

// Events 页面事件通道
func (d *Document) Events() <-chan dom.Event {
	return d.events
}

// Attached 页面脚本安装完成通知（每次文档加载一次，载荷为页面地址）
func (d *Document) Attached() <-chan string {
	return d.attached
}

// URL 当前页面地址
func (d *Document) URL() string {
	return d.page.URL()
}

// QueryAll 返回匹配选择器的全部元素
func (d *Document) QueryAll(selector string) ([]dom.Node, error) {
	v, err := d.page.Evaluate(queryAllScript, selector)
	if err != nil {
		return nil, fmt.Errorf("查询选择器失败: %w", err)
	}
	items, _ := v.([]interface{})
	nodes := make([]dom.Node, 0, len(items))
	for _, item := range items {
		if id, ok := item.(string); ok && id != "" {
			nodes = append(nodes, &Node{doc: d, id: id})
		}
	}
	return nodes, nil
}

// Viewport 视口尺寸与滚动偏移
func (d *Document) Viewport() (geometry.Viewport, error) {
	v, err := d.page.Evaluate(viewportScript)
	if err != nil {
		return geometry.Viewport{}, fmt.Errorf("读取视口失败: %w", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return geometry.Viewport{}, fmt.Errorf("视口结果格式错误: %T", v)
	}
	return geometry.Viewport{
		Width:   toFloat(m["w"]),
		Height:  toFloat(m["h"]),
		ScrollX: toFloat(m["sx"]),
		ScrollY: toFloat(m["sy"]),
	}, nil
}

// Selection 当前选区
func (d *Document) Selection() (dom.Selection, bool, error) {
	v, err := d.page.Evaluate(selectionScript)
	if err != nil {
		return dom.Selection{}, false, fmt.Errorf("读取选区失败: %w", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return dom.Selection{}, false, nil
	}
	text, _ := m["text"].(string)
	if text == "" {
		return dom.Selection{}, false, nil
	}
	return dom.Selection{
		Text:   text,
		Origin: geometry.Point{X: toFloat(m["x"]), Y: toFloat(m["y"])},
	}, true, nil
}

// popupContent 页面脚本使用的弹窗内容
type popupContent struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Warning bool        `json:"warning"`
	Lines   []popupLine `json:"lines"`
}

type popupLine struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

// NewPopup 创建隐藏弹窗并追加到 body
func (d *Document) NewPopup(id string, content dom.Content) (dom.Popup, error) {
	pc := popupContent{Title: content.Title, Message: content.Message, Warning: content.Warning}
	for _, l := range content.Lines {
		pc.Lines = append(pc.Lines, popupLine{Code: l.Code, Symbol: l.Symbol, Amount: l.Amount})
	}
	arg, err := toArg(pc)
	if err != nil {
		return nil, err
	}
	if _, err := d.page.Evaluate(newPopupScript, []interface{}{id, arg}); err != nil {
		return nil, fmt.Errorf("插入弹窗失败: %w", err)
	}
	return &Popup{doc: d, id: id}, nil
}

// toArg 转换为页面求值参数（map 形式）
func toArg(v any) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化参数失败: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("序列化参数失败: %w", err)
	}
	return m, nil
}

// toFloat 页面求值返回的数字可能是整数或浮点数
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	}
	return 0
}
