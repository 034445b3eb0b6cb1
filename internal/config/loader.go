package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 CHAPTERTRANS_STORE_DRIVER
const EnvPrefix = "CHAPTERTRANS"

// LoadConfig 从文件和环境变量加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".chaptertrans")
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容原有部署使用的变量名
	_ = v.BindEnv("translation.api_key", EnvPrefix+"_TRANSLATION_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("store.postgres_dsn", EnvPrefix+"_STORE_POSTGRES_DSN", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Translation.BatchSize <= 0 {
		return fmt.Errorf("translation.batch_size must be positive, got %d", c.Translation.BatchSize)
	}
	if c.Site.ContainerSelector == "" {
		return fmt.Errorf("site.container_selector must be specified")
	}
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url must be specified")
	}
	if c.Source.AllowedDomain == "" {
		return fmt.Errorf("source.allowed_domain must be specified")
	}

	switch c.Store.Driver {
	case "memory", "redis":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Static.Enabled && c.Static.Dir == "" {
		return fmt.Errorf("static.dir must be specified when static publishing is enabled")
	}

	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("debug", d.Debug)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("source.allowed_domain", d.Source.AllowedDomain)
	v.SetDefault("source.encoding", d.Source.Encoding)
	v.SetDefault("source.user_agent", d.Source.UserAgent)
	v.SetDefault("source.timeout", d.Source.Timeout)
	v.SetDefault("source.max_retries", d.Source.MaxRetries)

	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.container_selector", d.Site.ContainerSelector)
	v.SetDefault("site.title_selector", d.Site.TitleSelector)
	v.SetDefault("site.nav_selector", d.Site.NavSelector)
	v.SetDefault("site.prev_label", d.Site.PrevLabel)
	v.SetDefault("site.next_label", d.Site.NextLabel)
	v.SetDefault("site.default_title", d.Site.DefaultTitle)
	v.SetDefault("site.remove_selectors", d.Site.RemoveSelectors)
	v.SetDefault("site.filter_markers", d.Site.FilterMarkers)

	v.SetDefault("translation.provider", d.Translation.Provider)
	v.SetDefault("translation.model", d.Translation.Model)
	v.SetDefault("translation.api_key", "")
	v.SetDefault("translation.base_url", "")
	v.SetDefault("translation.source_lang", d.Translation.SourceLang)
	v.SetDefault("translation.target_lang", d.Translation.TargetLang)
	v.SetDefault("translation.temperature", d.Translation.Temperature)
	v.SetDefault("translation.max_tokens", d.Translation.MaxTokens)
	v.SetDefault("translation.batch_size", d.Translation.BatchSize)
	v.SetDefault("translation.call_timeout", d.Translation.CallTimeout)
	v.SetDefault("translation.requests_per_minute", d.Translation.RequestsPerMinute)
	v.SetDefault("translation.max_retries", d.Translation.MaxRetries)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.memory_size", d.Store.MemorySize)
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.auto_migrate", d.Store.AutoMigrate)
	v.SetDefault("store.redis_addr", d.Store.RedisAddr)
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_ttl", 0)

	v.SetDefault("static.enabled", d.Static.Enabled)
	v.SetDefault("static.dir", d.Static.Dir)

	v.SetDefault("gateway.dedupe_inflight", d.Gateway.DedupeInflight)

	v.SetDefault("client.server_url", d.Client.ServerURL)
	v.SetDefault("client.timeout", d.Client.Timeout)
}
