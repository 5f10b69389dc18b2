// Package catalog 实现站点目录的加载与匹配。
// 目录是按顺序排列的站点规则列表，先匹配者胜出（不是最佳匹配）。
package catalog

import (
	"regexp"
	"strings"
	"sync"

	"crypto-price-overlay/internal/core/model"
)

// Matcher 带正则缓存的目录匹配器
// 每个 URL 模式只编译一次；非法模式记为不匹配。
type Matcher struct {
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
	invalid  map[string]error
}

// NewMatcher 创建匹配器
func NewMatcher() *Matcher {
	return &Matcher{
		compiled: make(map[string]*regexp.Regexp),
		invalid:  make(map[string]error),
	}
}

var defaultMatcher = NewMatcher()

// Resolve 使用默认匹配器解析当前页面的选择器
func Resolve(c *model.Catalog, url string) model.Resolution {
	return defaultMatcher.Resolve(c, url)
}

// ResolveAlerts 使用默认匹配器解析当前页面的告警规则
func ResolveAlerts(c *model.Catalog, url string) (model.AlertRule, bool) {
	return defaultMatcher.ResolveAlerts(c, url)
}

// Resolve 解析当前页面的选择器
// 参数 c: 站点目录，nil 表示尚未加载
// 参数 url: 当前页面地址
// 返回: 目录未加载 → Unresolved；命中 → Matched(以 ", " 连接的选择器)；否则 NoMatch
func (m *Matcher) Resolve(c *model.Catalog, url string) model.Resolution {
	if c == nil {
		return model.Resolution{}
	}
	for i := range c.Rules {
		rule := &c.Rules[i]
		if m.ruleMatches(rule, url) {
			return model.MatchedSelector(strings.Join(rule.Selectors, ", "))
		}
	}
	return model.Resolution{State: model.NoMatch}
}

// ResolveAlerts 解析当前页面的告警规则
// 按目录顺序返回第一条 URL 命中且带有完整告警规则（sources 与 triggers 均非空）的规则。
func (m *Matcher) ResolveAlerts(c *model.Catalog, url string) (model.AlertRule, bool) {
	if c == nil {
		return model.AlertRule{}, false
	}
	for i := range c.Rules {
		rule := &c.Rules[i]
		if rule.Alerts.Empty() {
			continue
		}
		if m.ruleMatches(rule, url) {
			return *rule.Alerts, true
		}
	}
	return model.AlertRule{}, false
}

// Invalid 返回无法编译的模式及其错误
func (m *Matcher) Invalid() map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]error, len(m.invalid))
	for k, v := range m.invalid {
		out[k] = v
	}
	return out
}

func (m *Matcher) ruleMatches(rule *model.SiteRule, url string) bool {
	for _, pattern := range rule.URLPatterns {
		re := m.compile(pattern)
		if re != nil && re.MatchString(url) {
			return true
		}
	}
	return false
}

func (m *Matcher) compile(pattern string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()

	if re, ok := m.compiled[pattern]; ok {
		return re
	}
	if _, bad := m.invalid[pattern]; bad {
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		m.invalid[pattern] = err
		return nil
	}
	m.compiled[pattern] = re
	return re
}
