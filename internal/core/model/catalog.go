package model

import (
	"encoding/json"
	"strings"
)

// AlertRule 站点告警规则
type AlertRule struct {
	// Sources 读取参考价格的元素选择器
	Sources []string `json:"sources"`
	// Triggers 需要标记为告警触发器的输入元素选择器
	Triggers []string `json:"triggers"`
}

// Empty 规则是否缺少 sources 或 triggers
func (a *AlertRule) Empty() bool {
	return a == nil || len(a.Sources) == 0 || len(a.Triggers) == 0
}

// SourceSelector 合并后的 sources 选择器
func (a AlertRule) SourceSelector() string {
	return strings.Join(a.Sources, ", ")
}

// TriggerSelector 合并后的 triggers 选择器
func (a AlertRule) TriggerSelector() string {
	return strings.Join(a.Triggers, ", ")
}

// SiteRule 单个站点的匹配规则
type SiteRule struct {
	// URLPatterns URL 正则（大小写不敏感）
	URLPatterns []string `json:"urls"`
	// Selectors 价格元素选择器
	Selectors []string `json:"selectors"`
	// Alerts 可选的告警规则
	Alerts *AlertRule `json:"alerts,omitempty"`
}

// Catalog 站点目录，规则顺序即匹配优先级（先匹配者胜出）
// JSON 文档形态为规则数组。
type Catalog struct {
	Rules []SiteRule
}

// UnmarshalJSON 从规则数组解析目录
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var rules []SiteRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return err
	}
	c.Rules = rules
	return nil
}

// MarshalJSON 输出规则数组
func (c Catalog) MarshalJSON() ([]byte, error) {
	if c.Rules == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Rules)
}

// ResolutionState 选择器解析状态
type ResolutionState int

const (
	// Unresolved 目录尚未加载
	Unresolved ResolutionState = iota
	// NoMatch 目录已加载但没有规则匹配当前页面
	NoMatch
	// Matched 命中规则
	Matched
)

// String 返回状态名称
func (s ResolutionState) String() string {
	switch s {
	case NoMatch:
		return "no_match"
	case Matched:
		return "matched"
	default:
		return "unresolved"
	}
}

// Resolution 页面级选择器解析结果
// 只允许 Unresolved → NoMatch | Matched 的单向转换。
type Resolution struct {
	State    ResolutionState
	Selector string
}

// MatchedSelector 构造命中结果
func MatchedSelector(selector string) Resolution {
	return Resolution{State: Matched, Selector: selector}
}

// IsResolved 是否已完成解析（NoMatch 或 Matched）
func (r Resolution) IsResolved() bool {
	return r.State != Unresolved
}
