package pwdom

import (
	"errors"
	"fmt"

	"crypto-price-overlay/internal/core/geometry"
)

// Node 通过 data-overlay-node 寻址的页面元素
type Node struct {
	doc *Document
	id  string
}

// ID 元素寻址 ID
func (n *Node) ID() string { return n.id }

func (n *Node) eval(op, arg string) (interface{}, error) {
	v, err := n.doc.page.Evaluate(nodeScript, []interface{}{n.id, op, arg})
	if err != nil {
		return nil, fmt.Errorf("元素操作 %s 失败: %w", op, err)
	}
	if v == nil {
		return nil, ErrDetached
	}
	return v, nil
}

func (n *Node) evalBool(op, arg string) bool {
	v, err := n.eval(op, arg)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (n *Node) evalString(op string) string {
	v, err := n.eval(op, "")
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// HasClass 元素是否带有指定 class
func (n *Node) HasClass(class string) bool { return n.evalBool("has_class", class) }

// AddClass 为元素添加 class
func (n *Node) AddClass(class string) error {
	_, err := n.eval("add_class", class)
	return err
}

// Text 元素可见文本
func (n *Node) Text() string { return n.evalString("text") }

// Value 表单元素的当前值
func (n *Node) Value() string { return n.evalString("value") }

// Hovered 元素是否处于悬停状态
func (n *Node) Hovered() bool { return n.evalBool("hovered", "") }

// Popup 页面中的弹窗
type Popup struct {
	doc     *Document
	id      string
	removed bool
}

func (p *Popup) eval(op string, x, y float64) (interface{}, error) {
	v, err := p.doc.page.Evaluate(popupScript, []interface{}{p.id, op, x, y})
	if err != nil {
		return nil, fmt.Errorf("弹窗操作 %s 失败: %w", op, err)
	}
	if v == nil {
		return nil, ErrDetached
	}
	return v, nil
}

// ID 弹窗元素 ID
func (p *Popup) ID() string { return p.id }

// Size 实测尺寸
func (p *Popup) Size() (geometry.Size, error) {
	v, err := p.eval("size", 0, 0)
	if err != nil {
		return geometry.Size{}, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return geometry.Size{}, fmt.Errorf("尺寸结果格式错误: %T", v)
	}
	return geometry.Size{Width: toFloat(m["w"]), Height: toFloat(m["h"])}, nil
}

// SetPosition 设置文档坐标
func (p *Popup) SetPosition(pt geometry.Point) error {
	_, err := p.eval("move", pt.X, pt.Y)
	return err
}

// Show 使弹窗可见
func (p *Popup) Show() error {
	_, err := p.eval("show", 0, 0)
	return err
}

// Remove 从页面移除；重复调用无副作用
func (p *Popup) Remove() error {
	if p.removed {
		return nil
	}
	p.removed = true
	if _, err := p.eval("remove", 0, 0); err != nil && !errors.Is(err, ErrDetached) {
		return err
	}
	return nil
}

// Removed 是否已移除（包括被页面自身移除）
func (p *Popup) Removed() bool {
	if p.removed {
		return true
	}
	if _, err := p.eval("hovered", 0, 0); errors.Is(err, ErrDetached) {
		p.removed = true
	}
	return p.removed
}

// Hovered 弹窗是否处于悬停状态
func (p *Popup) Hovered() bool {
	v, err := p.eval("hovered", 0, 0)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
