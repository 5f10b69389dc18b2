// Package extract 从任意文本中提取价格数值。
package extract

import (
	"regexp"

	"crypto-price-overlay/internal/util/fastparse"
)

// numberRun 数字与小数点组成的最长连续片段
var numberRun = regexp.MustCompile(`[0-9.]+`)

// FirstNumber 提取文本中第一个数字片段并解析为浮点数
// 只看第一个片段，后续数字忽略。
// 返回: 解析结果；空串、无数字、片段无法解析（如 "..."）时返回 false
func FirstNumber(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	run := numberRun.FindString(text)
	if run == "" {
		return 0, false
	}
	return fastparse.ParseFloatPrefix(run)
}

// FromValueOrText 优先从表单值提取，值为空时退回到元素文本
func FromValueOrText(value, text string) (float64, bool) {
	if value != "" {
		return FirstNumber(value)
	}
	return FirstNumber(text)
}

// FromInput 按表单输入规则解析数值：保留正负号与指数，首个非法字符后截断
func FromInput(value string) (float64, bool) {
	return fastparse.ParseFloatLeading(value)
}

// FormatAmount 将数值格式化为可被 FirstNumber 读回的文本
// 参数 places: 小数位数，-1 表示最短表示
func FormatAmount(v float64, places int) string {
	return fastparse.FormatFloat(v, places)
}
