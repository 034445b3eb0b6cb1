package config

import (
	"time"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string `mapstructure:"addr"`             // 监听地址
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // 优雅退出超时（秒）
}

// SourceConfig 源站抓取配置
type SourceConfig struct {
	AllowedDomain string `mapstructure:"allowed_domain"` // 只接受包含该域名的 URL
	Encoding      string `mapstructure:"encoding"`       // 源站原始编码
	UserAgent     string `mapstructure:"user_agent"`
	Timeout       int    `mapstructure:"timeout"`     // 抓取超时（秒）
	MaxRetries    int    `mapstructure:"max_retries"` // 网络错误重试次数
}

// SiteConfig 源站页面结构约定
type SiteConfig struct {
	BaseURL           string   `mapstructure:"base_url"`           // 用于解析相对链接
	ContainerSelector string   `mapstructure:"container_selector"` // 正文容器
	TitleSelector     string   `mapstructure:"title_selector"`     // 章节标题
	NavSelector       string   `mapstructure:"nav_selector"`       // 上下章链接
	PrevLabel         string   `mapstructure:"prev_label"`
	NextLabel         string   `mapstructure:"next_label"`
	DefaultTitle      string   `mapstructure:"default_title"`
	RemoveSelectors   []string `mapstructure:"remove_selectors"` // 需要删除的样板节点
	FilterMarkers     []string `mapstructure:"filter_markers"`   // 样板段落标记
}

// TranslationConfig 翻译后端配置
type TranslationConfig struct {
	Provider          string  `mapstructure:"provider"` // gemini, openai, compat, google, deepl
	Model             string  `mapstructure:"model"`
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	SourceLang        string  `mapstructure:"source_lang"`
	TargetLang        string  `mapstructure:"target_lang"`
	Temperature       float64 `mapstructure:"temperature"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	BatchSize         int     `mapstructure:"batch_size"`          // 每批段落数
	CallTimeout       int     `mapstructure:"call_timeout"`        // 单次后端调用超时（秒）
	RequestsPerMinute int     `mapstructure:"requests_per_minute"` // 0 表示不限速
	MaxRetries        int     `mapstructure:"max_retries"`         // 批次失败重试次数，默认不重试
}

// StoreConfig 章节存储配置
type StoreConfig struct {
	Driver        string `mapstructure:"driver"` // memory, postgres, redis
	MemorySize    int    `mapstructure:"memory_size"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	AutoMigrate   bool   `mapstructure:"auto_migrate"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisTTL      int    `mapstructure:"redis_ttl"` // 秒，0 表示不过期
}

// StaticConfig 静态页面发布配置
type StaticConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// GatewayConfig 缓存网关配置
type GatewayConfig struct {
	DedupeInflight bool `mapstructure:"dedupe_inflight"` // 合并同一章节的并发未命中请求
}

// ClientConfig fetch 命令使用的客户端配置
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url"`
	Timeout   int    `mapstructure:"timeout"` // 整个请求的超时（秒），0 表示不限
}

// Config 保存服务的所有配置
type Config struct {
	Debug       bool              `mapstructure:"debug"`
	Server      ServerConfig      `mapstructure:"server"`
	Source      SourceConfig      `mapstructure:"source"`
	Site        SiteConfig        `mapstructure:"site"`
	Translation TranslationConfig `mapstructure:"translation"`
	Store       StoreConfig       `mapstructure:"store"`
	Static      StaticConfig      `mapstructure:"static"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Client      ClientConfig      `mapstructure:"client"`
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Debug: false,
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: 10,
		},
		Source: SourceConfig{
			AllowedDomain: "69shuba",
			Encoding:      "gbk",
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Timeout:       30,
			MaxRetries:    2,
		},
		Site: SiteConfig{
			BaseURL:           "https://www.69shuba.com",
			ContainerSelector: ".txtnav",
			TitleSelector:     ".txtnav h1",
			NavSelector:       ".page1 a",
			PrevLabel:         "上一章",
			NextLabel:         "下一章",
			DefaultTitle:      "Chapter",
			RemoveSelectors:   []string{".contentadv", ".bottom-ad", "script", ".page1", "h1", ".txtinfo", "#txtright"},
			FilterMarkers:     []string{"ps", "作者", "本章完", "感谢"},
		},
		Translation: TranslationConfig{
			Provider:          "gemini",
			Model:             "gemini-1.5-flash",
			SourceLang:        "Chinese",
			TargetLang:        "English",
			Temperature:       0.3,
			MaxTokens:         4096,
			BatchSize:         5,
			CallTimeout:       90,
			RequestsPerMinute: 0,
			MaxRetries:        0,
		},
		Store: StoreConfig{
			Driver:      "memory",
			MemorySize:  1024,
			AutoMigrate: true,
			RedisAddr:   "localhost:6379",
		},
		Static: StaticConfig{
			Enabled: true,
			Dir:     "static",
		},
		Gateway: GatewayConfig{
			DedupeInflight: false,
		},
		Client: ClientConfig{
			ServerURL: "http://localhost:5000",
			Timeout:   0,
		},
	}
}

// SourceTimeout 抓取超时
func (c *Config) SourceTimeout() time.Duration {
	return seconds(c.Source.Timeout)
}

// CallTimeout 单次翻译调用超时
func (c *Config) CallTimeout() time.Duration {
	return seconds(c.Translation.CallTimeout)
}

// ShutdownTimeout 优雅退出超时
func (c *Config) ShutdownTimeout() time.Duration {
	return seconds(c.Server.ShutdownTimeout)
}

// RedisTTL Redis 键过期时间
func (c *Config) RedisTTL() time.Duration {
	return seconds(c.Store.RedisTTL)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
