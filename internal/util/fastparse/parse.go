// Package fastparse 提供价格文本到数值的转换函数。
// 统一使用 strconv，避免在事件热路径上使用 fmt。
package fastparse

import (
	"errors"
	"math"
	"strconv"
)

// ParseFloatPrefix 解析字符串中最长的合法浮点数前缀
// 行为与浏览器 parseFloat 一致："1.2.3" → 1.2，"." → 失败。
// 参数 s: 仅由数字和小数点组成的字符串
// 返回: 解析结果，以及是否成功
func ParseFloatPrefix(s string) (float64, bool) {
	end := 0
	seenDot := false
	seenDigit := false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if c >= '0' && c <= '9' {
			seenDigit = true
		} else {
			break
		}
		end++
	}
	if !seenDigit {
		return 0, false
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseFloatLeading 按浏览器 parseFloat 规则解析表单输入
// 跳过前导空白，接受正负号、小数与指数部分，遇到第一个非法字符即停止。
// "-80" → -80，"1e2" → 100，"1e" → 1，"abc" → 失败。
// 参数 s: 原始输入
// 返回: 解析结果，以及是否成功
func ParseFloatLeading(s string) (float64, bool) {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t' || s[start] == '\n' || s[start] == '\r') {
		start++
	}
	end := start
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}

	mantissa := end
	seenDot := false
	seenDigit := false
	for end < len(s) {
		c := s[end]
		if c == '.' && !seenDot {
			seenDot = true
		} else if c >= '0' && c <= '9' {
			seenDigit = true
		} else {
			break
		}
		end++
	}
	if !seenDigit || end == mantissa {
		return 0, false
	}

	// 指数部分至少需要一位数字，否则回退到尾数
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		digits := exp
		for exp < len(s) && s[exp] >= '0' && s[exp] <= '9' {
			exp++
		}
		if exp > digits {
			end = exp
		}
	}

	v, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// FormatFloat 格式化浮点数为字符串
// 参数 f: 待格式化的浮点数
// 参数 prec: 小数位数，-1 表示最短表示
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
