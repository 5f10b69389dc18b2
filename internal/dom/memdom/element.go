package memdom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"crypto-price-overlay/internal/core/geometry"
	"crypto-price-overlay/internal/dom"
)

// Element 内存 DOM 元素
type Element struct {
	doc *Document
	n   *html.Node
}

var _ dom.Node = (*Element)(nil)

// HasClass 元素是否带有指定 class
func (e *Element) HasClass(class string) bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return hasClass(e.n, class)
}

// AddClass 添加 class；已存在时不修改
func (e *Element) AddClass(class string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if hasClass(e.n, class) {
		return nil
	}
	for i, a := range e.n.Attr {
		if a.Key == "class" {
			e.n.Attr[i].Val = strings.TrimSpace(a.Val + " " + class)
			e.doc.classAdds++
			return nil
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: "class", Val: class})
	e.doc.classAdds++
	return nil
}

// Text 元素文本
func (e *Element) Text() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	var sb strings.Builder
	collectText(e.n, &sb)
	return strings.TrimSpace(sb.String())
}

// Value 表单值：input 读取 value 属性，textarea 读取文本
func (e *Element) Value() string {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	switch e.n.DataAtom {
	case atom.Input, atom.Select, atom.Option:
		return attr(e.n, "value")
	case atom.Textarea:
		var sb strings.Builder
		collectText(e.n, &sb)
		return sb.String()
	}
	return ""
}

// SetValue 修改 input 的 value 属性
func (e *Element) SetValue(v string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for i, a := range e.n.Attr {
		if a.Key == "value" {
			e.n.Attr[i].Val = v
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: "value", Val: v})
}

// Hovered 元素是否悬停
func (e *Element) Hovered() bool {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.doc.hovered[e.n]
}

// Popup 内存弹窗
type Popup struct {
	doc     *Document
	id      string
	n       *html.Node
	content dom.Content
	size    geometry.Size

	pos     geometry.Point
	visible bool
	removed bool
	hovered bool
}

var _ dom.Popup = (*Popup)(nil)

// ID 弹窗 ID
func (p *Popup) ID() string { return p.id }

// Size 弹窗尺寸
func (p *Popup) Size() (geometry.Size, error) { return p.size, nil }

// SetPosition 设置弹窗位置
func (p *Popup) SetPosition(pt geometry.Point) error {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	p.pos = pt
	return nil
}

// Show 使弹窗可见
func (p *Popup) Show() error {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	p.visible = true
	for i, a := range p.n.Attr {
		if a.Key == "style" {
			p.n.Attr[i].Val = "position:absolute"
		}
	}
	return nil
}

// Remove 从页面移除
func (p *Popup) Remove() error {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	if p.removed {
		return nil
	}
	p.removed = true
	p.hovered = false
	if p.n.Parent != nil {
		p.n.Parent.RemoveChild(p.n)
	}
	return nil
}

// Removed 是否已移除
func (p *Popup) Removed() bool {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return p.removed
}

// Hovered 弹窗是否悬停
func (p *Popup) Hovered() bool {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return p.hovered
}

// SetHovered 设置弹窗悬停状态
func (p *Popup) SetHovered(h bool) {
	p.doc.mu.Lock()
	p.hovered = h
	p.doc.mu.Unlock()
}

// Position 当前位置
func (p *Popup) Position() geometry.Point {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return p.pos
}

// Visible 是否可见
func (p *Popup) Visible() bool {
	p.doc.mu.Lock()
	defer p.doc.mu.Unlock()
	return p.visible
}

// Content 弹窗内容
func (p *Popup) Content() dom.Content { return p.content }

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
