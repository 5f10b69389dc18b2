// Package alert 判断用户输入的价格是否明显偏离参考价格。
package alert

import (
	"math"

	"github.com/shopspring/decimal"

	"crypto-price-overlay/internal/core/extract"
	"crypto-price-overlay/internal/dom"
)

// Threshold 偏离比例阈值（15%）
const Threshold = 0.15

// Yield 计算目标价相对参考价的偏离比例 |reference - target| / reference
// reference 为 0 表示尚无数据，返回 0。
func Yield(reference, target float64) float64 {
	if reference == 0 {
		return 0
	}
	return math.Abs(reference-target) / reference
}

// ShouldAlert 判断是否需要告警
// 条件: 参考价已知、目标价为正、偏离比例 >= Threshold
func ShouldAlert(reference, target float64) bool {
	if reference == 0 {
		return false
	}
	return target > 0 && Yield(reference, target) >= Threshold
}

// Percent 将偏离比例格式化为保留一位小数的百分数
func Percent(yield float64) string {
	return decimal.NewFromFloat(yield).Mul(decimal.NewFromInt(100)).StringFixed(1)
}

// Message 告警文案
func Message(yield float64) string {
	return "Caution: you specified a BTC price that is off by " + Percent(yield) + "% of the original asking price"
}

// State 页面级告警状态
type State struct {
	// ReferencePrice 从页面读取的参考价格，0 表示未知
	ReferencePrice float64
}

// Known 参考价格是否可用
func (s *State) Known() bool {
	return s.ReferencePrice != 0
}

// Evaluator 告警评估器
// marker 为告警触发元素的标记 class。
type Evaluator struct {
	marker string
}

// NewEvaluator 创建告警评估器
func NewEvaluator(marker string) *Evaluator {
	return &Evaluator{marker: marker}
}

// Evaluate 评估触发元素的当前值
// 仅处理带有告警标记且值非空的元素；值按表单输入规则解析，负数与指数保留。
// 返回: 告警文案，以及是否需要告警
func (e *Evaluator) Evaluate(st *State, target dom.Node) (string, bool) {
	if st == nil || target == nil || !target.HasClass(e.marker) {
		return "", false
	}
	value := target.Value()
	if value == "" {
		return "", false
	}
	v, ok := extract.FromInput(value)
	if !ok {
		return "", false
	}
	if !ShouldAlert(st.ReferencePrice, v) {
		return "", false
	}
	return Message(Yield(st.ReferencePrice, v)), true
}
