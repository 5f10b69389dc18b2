// Package model 定义覆盖层引擎中使用的核心数据结构。
// 包含价格表、站点目录规则与选择器解析结果。
package model

import "sort"

// DefaultCurrencies 弹窗默认展示的币种（按展示顺序）
var DefaultCurrencies = []string{"USD", "EUR", "JPY", "KRW", "CAD", "AUD", "GBP", "CNY", "RUB"}

// Quote 单个法币的最新成交价
type Quote struct {
	// Symbol 货币符号，如 "$"
	Symbol string `json:"symbol"`
	// Last 最新成交价（1 单位加密货币折合的法币数量）
	Last float64 `json:"last"`
}

// PriceTable 价格表快照
// key 为币种代码（如 USD）。整表替换，不做局部修改；持有者应视为只读。
type PriceTable map[string]Quote

// Lookup 查询币种报价
func (t PriceTable) Lookup(code string) (Quote, bool) {
	if t == nil {
		return Quote{}, false
	}
	q, ok := t[code]
	return q, ok
}

// Currencies 返回价格表中可用的币种代码（排序后）
func (t PriceTable) Currencies() []string {
	codes := make([]string, 0, len(t))
	for code := range t {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone 复制价格表，用于构造新快照
func (t PriceTable) Clone() PriceTable {
	if t == nil {
		return nil
	}
	out := make(PriceTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
