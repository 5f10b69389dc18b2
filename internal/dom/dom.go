// Package dom 定义覆盖层引擎访问宿主页面所需的最小 DOM 接口。
// 引擎只通过这些接口读写页面，具体实现见 memdom（内存 DOM）与 pwdom（浏览器页面）。
package dom

import "crypto-price-overlay/internal/core/geometry"

// Node 页面元素句柄
type Node interface {
	// HasClass 元素是否带有指定 class
	HasClass(class string) bool
	// AddClass 为元素添加 class
	AddClass(class string) error
	// Text 元素可见文本
	Text() string
	// Value 表单元素的当前值，非表单元素返回空串
	Value() string
	// Hovered 元素当前是否处于悬停状态
	Hovered() bool
}

// Line 弹窗中的单行币种换算结果
type Line struct {
	Code   string
	Symbol string
	Amount string
}

// Content 弹窗内容
// 换算弹窗使用 Lines，告警弹窗使用 Message 并设置 Warning。
type Content struct {
	Title   string
	Lines   []Line
	Message string
	Warning bool
}

// Popup 已插入页面的弹窗
type Popup interface {
	// ID 弹窗元素 ID
	ID() string
	// Size 插入页面后的实测尺寸
	Size() (geometry.Size, error)
	// SetPosition 设置文档坐标
	SetPosition(p geometry.Point) error
	// Show 使弹窗可见
	Show() error
	// Remove 从页面移除；重复调用无副作用
	Remove() error
	// Removed 是否已移除
	Removed() bool
	// Hovered 弹窗容器当前是否处于悬停状态
	Hovered() bool
}

// Selection 当前文本选区
type Selection struct {
	// Text 选中的文本
	Text string
	// Origin 选区包围盒左上角（视口坐标）
	Origin geometry.Point
}

// Document 宿主页面
type Document interface {
	// URL 当前页面地址
	URL() string
	// QueryAll 返回匹配选择器的全部元素（文档顺序）
	QueryAll(selector string) ([]Node, error)
	// Viewport 视口尺寸与滚动偏移
	Viewport() (geometry.Viewport, error)
	// Selection 当前选区；没有选区时 ok 为 false
	Selection() (sel Selection, ok bool, err error)
	// NewPopup 创建隐藏状态的弹窗并插入页面
	NewPopup(id string, content Content) (Popup, error)
}

// EventKind 页面事件类型
type EventKind int

const (
	// PointerEnter 指针进入元素（捕获阶段）
	PointerEnter EventKind = iota + 1
	// PointerLeave 指针离开元素（捕获阶段）
	PointerLeave
	// PointerMove 指针移动
	PointerMove
	// ValueChanged 表单值变更
	ValueChanged
	// SelectionTrigger 用户显式请求换算选中文本
	SelectionTrigger
	// PopupLeave 指针离开弹窗
	PopupLeave
)

var kindNames = map[EventKind]string{
	PointerEnter:     "pointer_enter",
	PointerLeave:     "pointer_leave",
	PointerMove:      "pointer_move",
	ValueChanged:     "value_changed",
	SelectionTrigger: "selection",
	PopupLeave:       "popup_leave",
}

// String 事件类型名称
func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind 按名称解析事件类型
func ParseEventKind(name string) (EventKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Event 页面事件载荷
type Event struct {
	Kind EventKind
	// Target 事件目标元素，可能为 nil
	Target Node
	// PopupID PopupLeave 事件对应的弹窗 ID
	PopupID string
	// ClientX/ClientY 指针视口坐标
	ClientX float64
	ClientY float64
}

// EventSource 页面事件来源
type EventSource interface {
	Events() <-chan Event
}
