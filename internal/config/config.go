// Package config 负责加载和验证 YAML 配置文件。
// 覆盖价格源、站点目录、覆盖层引擎、价格广播服务与浏览器会话的全部配置项。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTickerURL 默认价格源地址
const DefaultTickerURL = "https://blockchain.info/ticker?cors=true"

// Config 应用配置根结构
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Feed 价格源配置
	Feed FeedConfig `yaml:"feed"`
	// Catalog 站点目录配置
	Catalog CatalogConfig `yaml:"catalog"`
	// Overlay 覆盖层引擎配置
	Overlay OverlayConfig `yaml:"overlay"`
	// Broadcaster 价格广播服务配置
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	// Browser 浏览器会话配置
	Browser BrowserConfig `yaml:"browser"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识与弹窗标题
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// FeedConfig 价格源配置
type FeedConfig struct {
	// URL 价格表 HTTP 地址
	URL string `yaml:"url"`
	// BroadcastURL 价格广播 websocket 地址；非空时覆盖层从广播服务订阅价格
	BroadcastURL string `yaml:"broadcast_url"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
	// RefreshIntervalMs 广播服务拉取价格的间隔（毫秒）
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
}

// CatalogConfig 站点目录配置
// Path 与 URL 均为空时使用随程序打包的目录。
type CatalogConfig struct {
	// Path 本地目录文件
	Path string `yaml:"path"`
	// URL 远程目录地址
	URL string `yaml:"url"`
	// TimeoutMs 远程目录请求超时（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// OverlayConfig 覆盖层引擎配置
type OverlayConfig struct {
	// TickIntervalMs 周期刷新间隔（毫秒）
	TickIntervalMs int `yaml:"tick_interval_ms"`
	// CleanupDelayMs 指针离开元素后回收弹窗的延迟（毫秒）
	CleanupDelayMs int `yaml:"cleanup_delay_ms"`
	// Currencies 悬停弹窗展示的币种
	Currencies []string `yaml:"currencies"`
	// SelectionCurrencies 选区换算展示的币种，空表示同 Currencies
	SelectionCurrencies []string `yaml:"selection_currencies"`
	// TooltipMarker 价格元素标记 class
	TooltipMarker string `yaml:"tooltip_marker"`
	// AlertMarker 告警触发元素标记 class
	AlertMarker string `yaml:"alert_marker"`
}

// BroadcasterConfig 价格广播服务配置
type BroadcasterConfig struct {
	// ListenAddr HTTP 监听地址
	ListenAddr string `yaml:"listen_addr"`
	// WriteTimeoutMs websocket 写超时（毫秒）
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
	// PingIntervalMs websocket 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
}

// BrowserConfig 浏览器会话配置
type BrowserConfig struct {
	// StartURL 启动后打开的页面
	StartURL string `yaml:"start_url"`
	// Engine 浏览器内核: chromium, firefox, webkit
	Engine string `yaml:"engine"`
	// Headless 是否无界面运行
	Headless bool `yaml:"headless"`
	// ViewportWidth 视口宽度
	ViewportWidth int `yaml:"viewport_width"`
	// ViewportHeight 视口高度
	ViewportHeight int `yaml:"viewport_height"`
	// TimeoutMs 页面操作超时（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
}

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置内容，设置默认值并验证
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return &cfg, nil
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "crypto-price-overlay"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	if c.Feed.URL == "" {
		c.Feed.URL = DefaultTickerURL
	}
	if c.Feed.TimeoutMs == 0 {
		c.Feed.TimeoutMs = 10000 // 10 秒
	}
	if c.Feed.RefreshIntervalMs == 0 {
		c.Feed.RefreshIntervalMs = 60000 // 1 分钟
	}

	if c.Catalog.TimeoutMs == 0 {
		c.Catalog.TimeoutMs = 10000
	}

	if c.Overlay.TickIntervalMs == 0 {
		c.Overlay.TickIntervalMs = 1000 // 1 秒
	}
	if c.Overlay.CleanupDelayMs == 0 {
		c.Overlay.CleanupDelayMs = 50
	}
	if len(c.Overlay.Currencies) == 0 {
		c.Overlay.Currencies = []string{"USD", "EUR", "JPY", "KRW", "CAD", "AUD", "GBP", "CNY", "RUB"}
	}
	if c.Overlay.TooltipMarker == "" {
		c.Overlay.TooltipMarker = "price-overlay-tooltip"
	}
	if c.Overlay.AlertMarker == "" {
		c.Overlay.AlertMarker = "price-overlay-alert"
	}

	if c.Broadcaster.ListenAddr == "" {
		c.Broadcaster.ListenAddr = ":8787"
	}
	if c.Broadcaster.WriteTimeoutMs == 0 {
		c.Broadcaster.WriteTimeoutMs = 5000
	}
	if c.Broadcaster.PingIntervalMs == 0 {
		c.Broadcaster.PingIntervalMs = 25000 // 25 秒
	}

	if c.Browser.Engine == "" {
		c.Browser.Engine = "chromium"
	}
	if c.Browser.ViewportWidth == 0 {
		c.Browser.ViewportWidth = 1280
	}
	if c.Browser.ViewportHeight == 0 {
		c.Browser.ViewportHeight = 800
	}
	if c.Browser.TimeoutMs == 0 {
		c.Browser.TimeoutMs = 30000
	}
}

// Validate 验证配置合法性
// 返回: 若配置无效则返回包含全部问题的错误
func (c *Config) Validate() error {
	var errs []string

	if c.Feed.URL == "" {
		errs = append(errs, "feed.url: 价格源地址不能为空")
	}
	if c.Feed.BroadcastURL != "" && !strings.HasPrefix(c.Feed.BroadcastURL, "ws://") && !strings.HasPrefix(c.Feed.BroadcastURL, "wss://") {
		errs = append(errs, fmt.Sprintf("feed.broadcast_url: 必须是 ws:// 或 wss:// 地址，当前值: %s", c.Feed.BroadcastURL))
	}
	if c.Feed.TimeoutMs <= 0 {
		errs = append(errs, "feed.timeout_ms: 超时时间必须为正数")
	}
	if c.Feed.RefreshIntervalMs <= 0 {
		errs = append(errs, "feed.refresh_interval_ms: 刷新间隔必须为正数")
	}

	if c.Catalog.Path != "" && c.Catalog.URL != "" {
		errs = append(errs, "catalog: path 与 url 只能配置一个")
	}

	if c.Overlay.TickIntervalMs <= 0 {
		errs = append(errs, "overlay.tick_interval_ms: 刷新间隔必须为正数")
	}
	if c.Overlay.CleanupDelayMs < 0 {
		errs = append(errs, "overlay.cleanup_delay_ms: 回收延迟不能为负数")
	}
	for i, code := range append(append([]string{}, c.Overlay.Currencies...), c.Overlay.SelectionCurrencies...) {
		if !isCurrencyCode(code) {
			errs = append(errs, fmt.Sprintf("overlay.currencies[%d]: 无效的币种代码 '%s'", i, code))
		}
	}
	if c.Overlay.TooltipMarker == c.Overlay.AlertMarker {
		errs = append(errs, "overlay: tooltip_marker 与 alert_marker 不能相同")
	}
	if strings.ContainsAny(c.Overlay.TooltipMarker+c.Overlay.AlertMarker, " \t\n") {
		errs = append(errs, "overlay: 标记 class 不能包含空白字符")
	}

	validEngines := map[string]bool{"chromium": true, "firefox": true, "webkit": true}
	if !validEngines[c.Browser.Engine] {
		errs = append(errs, fmt.Sprintf("browser.engine: 无效的浏览器内核 '%s'，有效值: chromium, firefox, webkit", c.Browser.Engine))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, "browser.viewport: 视口尺寸必须为正数")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SelectionSet 选区换算使用的币种集合
func (o *OverlayConfig) SelectionSet() []string {
	if len(o.SelectionCurrencies) > 0 {
		return o.SelectionCurrencies
	}
	return o.Currencies
}

// isCurrencyCode 三位大写字母
func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
