package memdom

import (
	"strings"
	"testing"

	"crypto-price-overlay/internal/core/geometry"
	"crypto-price-overlay/internal/dom"
)

const page = `<html><body>
<div id="list">
  <span class="price">0.25 BTC</span>
  <span class="amount other">1.5</span>
</div>
<input id="bid" class="bid" value="42">
</body></html>`

func TestQueryAll_SelectorGroup(t *testing.T) {
	d, err := ParseString("https://example.com/item", page)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	nodes, err := d.QueryAll(".price, .amount")
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("nodes=%d, want 2", len(nodes))
	}
	if nodes[0].Text() != "0.25 BTC" {
		t.Fatalf("Text=%q", nodes[0].Text())
	}
	if _, err := d.QueryAll("[[["); err == nil {
		t.Fatalf("非法选择器应返回错误")
	}
}

func TestAddClass_CountsOnlyRealChanges(t *testing.T) {
	d, _ := ParseString("https://example.com", page)
	e, err := d.First(".amount")
	if err != nil {
		t.Fatalf("First: %v", err)
	}

	_ = e.AddClass("marker")
	_ = e.AddClass("marker")
	if !e.HasClass("marker") || !e.HasClass("other") {
		t.Fatalf("class 丢失")
	}
	if d.ClassAdds() != 1 {
		t.Fatalf("ClassAdds=%d, want 1", d.ClassAdds())
	}

	bare, _ := d.First("#list")
	_ = bare.AddClass("marker")
	if !bare.HasClass("marker") || d.ClassAdds() != 2 {
		t.Fatalf("无 class 属性的元素应新增 class")
	}
}

func TestValueAndHover(t *testing.T) {
	d, _ := ParseString("https://example.com", page)
	in, _ := d.First("#bid")
	if in.Value() != "42" {
		t.Fatalf("Value=%q", in.Value())
	}
	in.SetValue("40")
	if in.Value() != "40" {
		t.Fatalf("SetValue 未生效")
	}

	span, _ := d.First(".price")
	if span.Value() != "" {
		t.Fatalf("非表单元素 Value 应为空")
	}
	d.Hover(span, true)
	if !span.Hovered() {
		t.Fatalf("Hover 未生效")
	}
	d.Hover(span, false)
	if span.Hovered() {
		t.Fatalf("取消 Hover 未生效")
	}
}

func TestPopupLifecycle(t *testing.T) {
	d, _ := ParseString("https://example.com", page)
	p, err := d.NewPopup("popup-1", dom.Content{
		Title: "Crypto",
		Lines: []dom.Line{{Code: "USD", Symbol: "$", Amount: "10.000"}},
	})
	if err != nil {
		t.Fatalf("NewPopup: %v", err)
	}
	mp := p.(*Popup)
	if mp.Visible() {
		t.Fatalf("新弹窗应为隐藏状态")
	}
	size, _ := p.Size()
	if size.Width <= 0 || size.Height != 2*lineHeight+padY {
		t.Fatalf("Size=%+v", size)
	}

	_ = p.SetPosition(geometry.Point{X: 10, Y: 20})
	_ = p.Show()
	if !mp.Visible() || mp.Position() != (geometry.Point{X: 10, Y: 20}) {
		t.Fatalf("Show/SetPosition 未生效")
	}
	out, _ := d.HTML()
	if !strings.Contains(out, `id="popup-1"`) || !strings.Contains(out, "USD: $ 10.000") {
		t.Fatalf("弹窗未插入文档: %s", out)
	}

	_ = p.Remove()
	_ = p.Remove()
	if !p.Removed() || len(d.Popups()) != 0 {
		t.Fatalf("Remove 未生效")
	}
	if _, ok := d.Popup("popup-1"); ok {
		t.Fatalf("已移除弹窗不应可查")
	}
}

func TestAppendAndSelection(t *testing.T) {
	d, _ := ParseString("https://example.com", page)
	if err := d.Append("#list", `<span class="price">9</span>`); err != nil {
		t.Fatalf("Append: %v", err)
	}
	nodes, _ := d.QueryAll(".price")
	if len(nodes) != 2 {
		t.Fatalf("Append 后 nodes=%d, want 2", len(nodes))
	}

	if _, ok, _ := d.Selection(); ok {
		t.Fatalf("初始不应有选区")
	}
	d.Select("12 BTC", geometry.Point{X: 5, Y: 6})
	sel, ok, _ := d.Selection()
	if !ok || sel.Text != "12 BTC" || sel.Origin.X != 5 {
		t.Fatalf("Selection=%+v,%v", sel, ok)
	}
	d.ClearSelection()
	if _, ok, _ := d.Selection(); ok {
		t.Fatalf("ClearSelection 未生效")
	}
}

func TestDispatch(t *testing.T) {
	d, _ := ParseString("https://example.com", page)
	if !d.Dispatch(dom.Event{Kind: dom.PointerMove, ClientX: 1}) {
		t.Fatalf("Dispatch 失败")
	}
	ev := <-d.Events()
	if ev.Kind != dom.PointerMove || ev.ClientX != 1 {
		t.Fatalf("事件不一致: %+v", ev)
	}
}
