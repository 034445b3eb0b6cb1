package factory

import (
	"context"
	"fmt"

	"github.com/nerdneilsfield/go-chapter-translator/internal/config"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/compat"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/gemini"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/stats"
)

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	registry *providers.Registry
}

// New 创建新的提供商工厂，注册所有内置提供商
func New() *ProviderFactory {
	r := providers.NewRegistry()
	_ = r.Register("gemini", createGeminiProvider)
	_ = r.Register("openai", createOpenAIProvider)
	_ = r.Register("compat", createCompatProvider)
	_ = r.Register("google", createGoogleProvider)
	_ = r.Register("deepl", createDeepLProvider)
	return &ProviderFactory{registry: r}
}

// Registry 返回内部注册表，可用于注册自定义提供商
func (f *ProviderFactory) Registry() *providers.Registry {
	return f.registry
}

// CreateProvider 根据配置创建提供商，并包装指标中间件
func (f *ProviderFactory) CreateProvider(cfg config.TranslationConfig) (*stats.StatisticsMiddleware, error) {
	provider, err := f.registry.Create(cfg.Provider, providers.Settings{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("unsupported provider type: %w", err)
	}
	return stats.NewStatisticsMiddleware(provider), nil
}

// createGeminiProvider 创建 Gemini 提供商
func createGeminiProvider(s providers.Settings) (providers.TranslationProvider, error) {
	config := gemini.DefaultConfig()
	config.APIKey = s.APIKey
	config.APIEndpoint = s.BaseURL
	applyModel(&config.Model, &config.Temperature, &config.MaxTokens, s)
	return gemini.New(context.Background(), config)
}

// createOpenAIProvider 创建 OpenAI 提供商
func createOpenAIProvider(s providers.Settings) (providers.TranslationProvider, error) {
	config := openai.DefaultConfig()
	config.APIKey = s.APIKey
	config.APIEndpoint = s.BaseURL
	applyModel(&config.Model, &config.Temperature, &config.MaxTokens, s)
	return openai.New(config), nil
}

// createCompatProvider 创建 OpenAI 兼容提供商
func createCompatProvider(s providers.Settings) (providers.TranslationProvider, error) {
	config := compat.DefaultConfig()
	config.APIKey = s.APIKey
	if s.BaseURL != "" {
		config.APIEndpoint = s.BaseURL
	}
	applyModel(&config.Model, &config.Temperature, &config.MaxTokens, s)
	return compat.New(config), nil
}

// createGoogleProvider 创建 Google Translate 提供商
func createGoogleProvider(s providers.Settings) (providers.TranslationProvider, error) {
	config := google.DefaultConfig()
	config.APIKey = s.APIKey
	if s.BaseURL != "" {
		config.APIEndpoint = s.BaseURL
	}
	return google.New(config), nil
}

// createDeepLProvider 创建 DeepL 提供商
func createDeepLProvider(s providers.Settings) (providers.TranslationProvider, error) {
	config := deepl.DefaultConfig()
	config.APIKey = s.APIKey
	config.APIEndpoint = s.BaseURL
	return deepl.New(config), nil
}

func applyModel(model *string, temperature *float64, maxTokens *int, s providers.Settings) {
	if s.Model != "" {
		*model = s.Model
	}
	if s.Temperature > 0 {
		*temperature = s.Temperature
	}
	if s.MaxTokens > 0 {
		*maxTokens = s.MaxTokens
	}
}
