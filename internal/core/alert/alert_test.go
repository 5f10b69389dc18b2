package alert

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crypto-price-overlay/internal/dom/memdom"
)

func TestShouldAlert_SpecificValues(t *testing.T) {
	tests := []struct {
		ref, target float64
		want        bool
	}{
		{100, 80, true},
		{100, 90, false},
		{0, 50, false},
		{100, 0, false},
		{100, -10, false},
		{100, 115, true},
		{100, 120, true},
	}
	for _, tt := range tests {
		if got := ShouldAlert(tt.ref, tt.target); got != tt.want {
			t.Fatalf("ShouldAlert(%v,%v)=%v, want %v", tt.ref, tt.target, got, tt.want)
		}
	}
	if y := Yield(100, 80); math.Abs(y-0.2) > 1e-12 {
		t.Fatalf("Yield(100,80)=%v, want 0.2", y)
	}
	if Yield(0, 50) != 0 {
		t.Fatalf("reference 为 0 时 Yield 应为 0")
	}
}

func TestMessage(t *testing.T) {
	if got := Percent(0.2); got != "20.0" {
		t.Fatalf("Percent(0.2)=%s", got)
	}
	if got := Percent(0.12345); got != "12.3" {
		t.Fatalf("Percent(0.12345)=%s", got)
	}
	want := "Caution: you specified a BTC price that is off by 25.0% of the original asking price"
	if got := Message(0.25); got != want {
		t.Fatalf("Message=%q", got)
	}
}

func TestShouldAlert_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("参考价为 0 时从不告警", prop.ForAll(
		func(target float64) bool {
			return !ShouldAlert(0, target)
		},
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("告警当且仅当 target>0 且偏离 >= 15%", prop.ForAll(
		func(ref, target float64) bool {
			want := target > 0 && math.Abs(ref-target)/ref >= Threshold
			return ShouldAlert(ref, target) == want
		},
		gen.Float64Range(0.0001, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}

func TestEvaluator_Evaluate(t *testing.T) {
	d, err := memdom.ParseString("https://shop.example", `<body>
		<input id="marked" class="alert-marker" value="80">
		<input id="plain" value="80">
		<input id="empty" class="alert-marker" value="">
		<input id="close" class="alert-marker" value="95">
		<input id="negative" class="alert-marker" value="-80">
		<input id="exponent" class="alert-marker" value="1e2">
		<input id="text" class="alert-marker" value="about 80">
		<input id="suffix" class="alert-marker" value="50 BTC">
	</body>`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	ev := NewEvaluator("alert-marker")
	st := &State{ReferencePrice: 100}

	marked, _ := d.First("#marked")
	msg, ok := ev.Evaluate(st, marked)
	if !ok || msg != Message(0.2) {
		t.Fatalf("Evaluate(marked)=%q,%v", msg, ok)
	}

	suffix, _ := d.First("#suffix")
	if msg, ok := ev.Evaluate(st, suffix); !ok || msg != Message(0.5) {
		t.Fatalf("Evaluate(suffix)=%q,%v", msg, ok)
	}

	for _, sel := range []string{"#plain", "#empty", "#close", "#negative", "#exponent", "#text"} {
		n, _ := d.First(sel)
		if _, ok := ev.Evaluate(st, n); ok {
			t.Fatalf("%s 不应告警", sel)
		}
	}

	if _, ok := ev.Evaluate(&State{}, marked); ok {
		t.Fatalf("参考价未知时不应告警")
	}
	if (&State{}).Known() {
		t.Fatalf("零值状态不应视为已知")
	}
}
