// Package memdom 基于 golang.org/x/net/html 的内存 DOM 实现。
// 选择器匹配使用 cascadia（支持逗号分隔的选择器组）。
// 悬停、选区、视口等浏览器状态由调用方显式设置，用于测试与离线回放。
package memdom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"crypto-price-overlay/internal/core/geometry"
	"crypto-price-overlay/internal/dom"
)

const (
	// charWidth 估算字符宽度（像素）
	charWidth = 8
	// lineHeight 估算行高（像素）
	lineHeight = 18
	// padX/padY 弹窗内边距（左右合计 / 上下合计）
	padX = 44
	padY = 18
)

// Document 内存页面
type Document struct {
	mu sync.Mutex

	url  string
	root *html.Node
	body *html.Node

	viewport  geometry.Viewport
	hovered   map[*html.Node]bool
	selection *dom.Selection
	popups    []*Popup

	// classAdds AddClass 实际修改 class 的次数
	classAdds int

	events chan dom.Event
}

// Parse 解析 HTML 文档
// 参数 url: 页面地址
// 参数 r: HTML 内容
func Parse(url string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败: %w", err)
	}
	d := &Document{
		url:      url,
		root:     root,
		viewport: geometry.Viewport{Width: 1280, Height: 800},
		hovered:  make(map[*html.Node]bool),
		events:   make(chan dom.Event, 256),
	}
	d.body = findElement(root, atom.Body)
	if d.body == nil {
		return nil, fmt.Errorf("HTML 缺少 body 元素")
	}
	return d, nil
}

// ParseString 解析 HTML 字符串
func ParseString(url, src string) (*Document, error) {
	return Parse(url, strings.NewReader(src))
}

// URL 当前页面地址
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Navigate 修改页面地址（模拟单页应用路由）
func (d *Document) Navigate(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
}

// QueryAll 返回匹配选择器的元素
func (d *Document) QueryAll(selector string) ([]dom.Node, error) {
	group, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("解析选择器失败 %q: %w", selector, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	matches := cascadia.QueryAll(d.root, group)
	nodes := make([]dom.Node, 0, len(matches))
	for _, n := range matches {
		nodes = append(nodes, &Element{doc: d, n: n})
	}
	return nodes, nil
}

// First 返回第一个匹配元素，便于测试
func (d *Document) First(selector string) (*Element, error) {
	nodes, err := d.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("没有匹配 %q 的元素", selector)
	}
	return nodes[0].(*Element), nil
}

// Append 向匹配 parentSelector 的第一个元素追加 HTML 片段（模拟懒加载内容）
func (d *Document) Append(parentSelector, fragment string) error {
	parent, err := d.First(parentSelector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return fmt.Errorf("解析 HTML 片段失败: %w", err)
	}
	for _, n := range nodes {
		parent.n.AppendChild(n)
	}
	return nil
}

// Viewport 视口尺寸与滚动偏移
func (d *Document) Viewport() (geometry.Viewport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport, nil
}

// SetViewport 设置视口
func (d *Document) SetViewport(vp geometry.Viewport) {
	d.mu.Lock()
	d.viewport = vp
	d.mu.Unlock()
}

// Selection 当前选区
func (d *Document) Selection() (dom.Selection, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selection == nil || d.selection.Text == "" {
		return dom.Selection{}, false, nil
	}
	return *d.selection, true, nil
}

// Select 设置选区
func (d *Document) Select(text string, origin geometry.Point) {
	d.mu.Lock()
	d.selection = &dom.Selection{Text: text, Origin: origin}
	d.mu.Unlock()
}

// ClearSelection 清除选区
func (d *Document) ClearSelection() {
	d.mu.Lock()
	d.selection = nil
	d.mu.Unlock()
}

// Hover 设置元素悬停状态
func (d *Document) Hover(e *Element, hovered bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hovered {
		d.hovered[e.n] = true
	} else {
		delete(d.hovered, e.n)
	}
}

// NewPopup 创建隐藏弹窗并追加到 body
func (d *Document) NewPopup(id string, content dom.Content) (dom.Popup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "id", Val: id},
			{Key: "style", Val: "position:absolute;visibility:hidden"},
		},
	}
	lines := renderLines(content)
	for i, line := range lines {
		if i > 0 {
			n.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: line})
	}
	d.body.AppendChild(n)

	p := &Popup{doc: d, id: id, n: n, content: content, size: measure(lines)}
	d.popups = append(d.popups, p)
	return p, nil
}

// Popups 返回仍在页面中的弹窗
func (d *Document) Popups() []*Popup {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Popup, 0, len(d.popups))
	for _, p := range d.popups {
		if !p.removed {
			out = append(out, p)
		}
	}
	return out
}

// Popup 按 ID 查找仍在页面中的弹窗
func (d *Document) Popup(id string) (*Popup, bool) {
	for _, p := range d.Popups() {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// ClassAdds AddClass 实际生效的次数
func (d *Document) ClassAdds() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classAdds
}

// Dispatch 投递页面事件；队列满时丢弃
func (d *Document) Dispatch(ev dom.Event) bool {
	select {
	case d.events <- ev:
		return true
	default:
		return false
	}
}

// Events 页面事件通道
func (d *Document) Events() <-chan dom.Event {
	return d.events
}

// HTML 序列化当前文档
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var sb strings.Builder
	if err := html.Render(&sb, d.root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func renderLines(c dom.Content) []string {
	var lines []string
	if c.Title != "" {
		lines = append(lines, c.Title)
	}
	if c.Warning || c.Message != "" {
		lines = append(lines, c.Message)
	}
	for _, l := range c.Lines {
		lines = append(lines, l.Code+": "+strings.TrimSpace(l.Symbol+" "+l.Amount))
	}
	return lines
}

func measure(lines []string) geometry.Size {
	widest := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > widest {
			widest = n
		}
	}
	return geometry.Size{
		Width:  float64(widest*charWidth + padX),
		Height: float64(len(lines)*lineHeight + padY),
	}
}
