package tagger

import (
	"testing"

	"crypto-price-overlay/internal/dom/memdom"
)

func TestTag_Idempotent(t *testing.T) {
	d, err := memdom.ParseString("https://example.com/item", `<body><span class="price">1</span></body>`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}

	added, err := Tag(d, ".price", "marker")
	if err != nil || added != 1 {
		t.Fatalf("第一次 Tag=%d,%v, want 1", added, err)
	}
	added, err = Tag(d, ".price", "marker")
	if err != nil || added != 0 {
		t.Fatalf("第二次 Tag=%d,%v, want 0", added, err)
	}
	if d.ClassAdds() != 1 {
		t.Fatalf("ClassAdds=%d, want 1", d.ClassAdds())
	}
}

func TestTag_PicksUpLateContent(t *testing.T) {
	d, _ := memdom.ParseString("https://example.com", `<body><div id="list"><span class="price">1</span></div></body>`)
	_, _ = Tag(d, ".price", "marker")

	if err := d.Append("#list", `<span class="price">2</span><span class="price marker">3</span>`); err != nil {
		t.Fatalf("Append: %v", err)
	}
	added, _ := Tag(d, ".price", "marker")
	if added != 1 {
		t.Fatalf("新内容 added=%d, want 1", added)
	}
}

func TestTag_EmptyAndInvalidSelector(t *testing.T) {
	d, _ := memdom.ParseString("https://example.com", `<body></body>`)
	if n, err := Tag(d, "", "marker"); n != 0 || err != nil {
		t.Fatalf("空选择器应为 no-op")
	}
	if _, err := Tag(d, "[[[", "marker"); err == nil {
		t.Fatalf("非法选择器应返回错误")
	}
}
