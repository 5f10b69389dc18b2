package dom

import "testing"

func TestEventKind_RoundTrip(t *testing.T) {
	for k, name := range kindNames {
		got, ok := ParseEventKind(name)
		if !ok || got != k {
			t.Fatalf("ParseEventKind(%q)=%v,%v, want %v", name, got, ok, k)
		}
		if k.String() != name {
			t.Fatalf("String()=%q, want %q", k.String(), name)
		}
	}
	if _, ok := ParseEventKind("click"); ok {
		t.Fatalf("未知事件不应解析成功")
	}
	if EventKind(99).String() != "unknown" {
		t.Fatalf("未知事件名称应为 unknown")
	}
}
