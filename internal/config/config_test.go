package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigValidation_LogLevel 测试日志级别验证
func TestConfigValidation_LogLevel(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 非法日志级别应验证失败
	properties.Property("非法日志级别应验证失败", prop.ForAll(
		func(level string) bool {
			cfg := createValidConfig()
			cfg.App.LogLevel = level
			return cfg.Validate() != nil
		},
		gen.AlphaString().SuchThat(func(s string) bool {
			switch strings.ToLower(s) {
			case "debug", "info", "warn", "error":
				return false
			}
			return true
		}),
	))

	// 属性: 合法日志级别不区分大小写
	properties.Property("合法日志级别应通过验证", prop.ForAll(
		func(level string, upper bool) bool {
			cfg := createValidConfig()
			if upper {
				level = strings.ToUpper(level)
			}
			cfg.App.LogLevel = level
			return cfg.Validate() == nil
		},
		gen.OneConstOf("debug", "info", "warn", "error"),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_Intervals 测试时间参数验证
func TestConfigValidation_Intervals(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 非正的刷新间隔应验证失败
	properties.Property("非正的刷新间隔应验证失败", prop.ForAll(
		func(v int) bool {
			cfg := createValidConfig()
			cfg.Overlay.TickIntervalMs = v
			return cfg.Validate() != nil
		},
		gen.IntRange(-100000, 0),
	))

	// 属性: 负的回收延迟应验证失败
	properties.Property("负的回收延迟应验证失败", prop.ForAll(
		func(v int) bool {
			cfg := createValidConfig()
			cfg.Overlay.CleanupDelayMs = v
			return cfg.Validate() != nil
		},
		gen.IntRange(-100000, -1),
	))

	// 属性: 正数参数应通过验证
	properties.Property("有效时间参数应通过验证", prop.ForAll(
		func(tick, cleanup, timeout, refresh int) bool {
			cfg := createValidConfig()
			cfg.Overlay.TickIntervalMs = tick
			cfg.Overlay.CleanupDelayMs = cleanup
			cfg.Feed.TimeoutMs = timeout
			cfg.Feed.RefreshIntervalMs = refresh
			return cfg.Validate() == nil
		},
		gen.IntRange(1, 600000),
		gen.IntRange(0, 10000),
		gen.IntRange(1, 600000),
		gen.IntRange(1, 3600000),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_Currencies 测试币种代码验证
func TestConfigValidation_Currencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// 属性: 三位大写字母代码应通过验证
	properties.Property("三位大写字母代码应通过验证", prop.ForAll(
		func(a, b, c rune) bool {
			cfg := createValidConfig()
			cfg.Overlay.Currencies = []string{string([]rune{a, b, c})}
			return cfg.Validate() == nil
		},
		gen.RuneRange('A', 'Z'),
		gen.RuneRange('A', 'Z'),
		gen.RuneRange('A', 'Z'),
	))

	// 属性: 小写代码应验证失败
	properties.Property("小写代码应验证失败", prop.ForAll(
		func(a rune) bool {
			cfg := createValidConfig()
			cfg.Overlay.SelectionCurrencies = []string{"US" + string(a)}
			return cfg.Validate() != nil
		},
		gen.RuneRange('a', 'z'),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_Markers 测试标记 class 验证
func TestConfigValidation_Markers(t *testing.T) {
	cfg := createValidConfig()
	cfg.Overlay.AlertMarker = cfg.Overlay.TooltipMarker
	if err := cfg.Validate(); err == nil {
		t.Error("相同的标记应验证失败")
	}

	cfg = createValidConfig()
	cfg.Overlay.TooltipMarker = "two words"
	if err := cfg.Validate(); err == nil {
		t.Error("包含空白的标记应验证失败")
	}
}

// TestConfigValidation_Sources 测试价格源与目录来源验证
func TestConfigValidation_Sources(t *testing.T) {
	cfg := createValidConfig()
	cfg.Feed.BroadcastURL = "http://localhost:8787/ws/prices"
	if err := cfg.Validate(); err == nil {
		t.Error("非 websocket 广播地址应验证失败")
	}

	cfg = createValidConfig()
	cfg.Feed.BroadcastURL = "ws://localhost:8787/ws/prices"
	if err := cfg.Validate(); err != nil {
		t.Errorf("websocket 广播地址应通过验证: %v", err)
	}

	cfg = createValidConfig()
	cfg.Catalog.Path = "./web-data.json"
	cfg.Catalog.URL = "https://example.com/web-data.json"
	if err := cfg.Validate(); err == nil {
		t.Error("同时配置 path 与 url 应验证失败")
	}

	cfg = createValidConfig()
	cfg.Browser.Engine = "netscape"
	if err := cfg.Validate(); err == nil {
		t.Error("未知浏览器内核应验证失败")
	}
}

// TestConfigValidation_CollectsAllErrors 测试一次返回全部问题
func TestConfigValidation_CollectsAllErrors(t *testing.T) {
	cfg := createValidConfig()
	cfg.App.LogLevel = "verbose"
	cfg.Overlay.TickIntervalMs = 0
	cfg.Browser.Engine = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("应返回错误")
	}
	msg := err.Error()
	for _, field := range []string{"app.log_level", "overlay.tick_interval_ms", "browser.engine"} {
		if !strings.Contains(msg, field) {
			t.Errorf("错误信息缺少 %s: %s", field, msg)
		}
	}
}

// createValidConfig 创建一个有效的配置用于测试
func createValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "test",
			LogLevel: "info",
		},
		Feed: FeedConfig{
			URL:               DefaultTickerURL,
			TimeoutMs:         10000,
			RefreshIntervalMs: 60000,
		},
		Catalog: CatalogConfig{
			TimeoutMs: 10000,
		},
		Overlay: OverlayConfig{
			TickIntervalMs: 1000,
			CleanupDelayMs: 50,
			Currencies:     []string{"USD", "EUR"},
			TooltipMarker:  "price-overlay-tooltip",
			AlertMarker:    "price-overlay-alert",
		},
		Broadcaster: BroadcasterConfig{
			ListenAddr:     ":8787",
			WriteTimeoutMs: 5000,
			PingIntervalMs: 25000,
		},
		Browser: BrowserConfig{
			Engine:         "chromium",
			ViewportWidth:  1280,
			ViewportHeight: 800,
			TimeoutMs:      30000,
		},
	}
}

// TestLoad_ValidFile 测试从有效文件加载配置
func TestLoad_ValidFile(t *testing.T) {
	content := `
app:
  name: test-overlay
  log_level: debug

feed:
  broadcast_url: ws://127.0.0.1:8787/ws/prices

catalog:
  path: ./web-data.json

overlay:
  tick_interval_ms: 500
  currencies: [USD, JPY]
  selection_currencies: [EUR]

browser:
  start_url: https://example.com/item
  headless: true
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.App.Name != "test-overlay" {
		t.Errorf("App.Name = %s, want test-overlay", cfg.App.Name)
	}
	if cfg.Overlay.TickIntervalMs != 500 {
		t.Errorf("Overlay.TickIntervalMs = %d, want 500", cfg.Overlay.TickIntervalMs)
	}
	if len(cfg.Overlay.Currencies) != 2 || cfg.Overlay.Currencies[1] != "JPY" {
		t.Errorf("Overlay.Currencies = %v, want [USD JPY]", cfg.Overlay.Currencies)
	}
	if got := cfg.Overlay.SelectionSet(); len(got) != 1 || got[0] != "EUR" {
		t.Errorf("SelectionSet() = %v, want [EUR]", got)
	}
	// 未配置的字段使用默认值
	if cfg.Feed.URL != DefaultTickerURL {
		t.Errorf("Feed.URL = %s, want %s", cfg.Feed.URL, DefaultTickerURL)
	}
	if cfg.Overlay.CleanupDelayMs != 50 {
		t.Errorf("Overlay.CleanupDelayMs = %d, want 50", cfg.Overlay.CleanupDelayMs)
	}
	if cfg.Browser.Engine != "chromium" {
		t.Errorf("Browser.Engine = %s, want chromium", cfg.Browser.Engine)
	}
}

// TestDefault 测试默认配置
func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("默认配置应通过验证: %v", err)
	}
	if len(cfg.Overlay.Currencies) != 9 {
		t.Errorf("len(Currencies) = %d, want 9", len(cfg.Overlay.Currencies))
	}
	if got := cfg.Overlay.SelectionSet(); len(got) != 9 {
		t.Errorf("SelectionSet() 应回退到 Currencies, got %v", got)
	}
}

// TestLoad_InvalidFile 测试加载无效文件
func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("加载不存在的文件应返回错误")
	}
}

// TestLoad_InvalidYAML 测试加载无效 YAML
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(tmpFile, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	_, err := Load(tmpFile)
	if err == nil {
		t.Error("加载无效 YAML 应返回错误")
	}
}
