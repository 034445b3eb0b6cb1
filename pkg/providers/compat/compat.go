// Package compat 通过 sashabaranov/go-openai 访问 OpenAI 兼容接口（Ollama、DeepSeek 等）
package compat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

// Config 兼容接口配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置，默认指向本地 Ollama
func DefaultConfig() Config {
	config := Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "qwen2.5:7b",
		Temperature: 0.3,
		MaxTokens:   4096,
	}
	config.APIEndpoint = "http://localhost:11434/v1"
	return config
}

// Provider OpenAI 兼容提供商
type Provider struct {
	config Config
	client *openai.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建提供商
func New(config Config) *Provider {
	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.HTTPClient = &http.Client{
		Timeout:   config.Timeout,
		Transport: &headerRoundTripper{base: http.DefaultTransport, headers: config.Headers},
	}
	if config.APIEndpoint != "" {
		// go-openai 的路径后缀以斜杠开头，避免出现双斜杠
		clientConfig.BaseURL = strings.TrimSuffix(config.APIEndpoint, "/")
	}

	return &Provider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: providers.BuildPrompt(req.SourceLanguage, req.TargetLanguage, req.Text),
			},
		},
		Temperature: float32(p.config.Temperature),
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, providers.ErrorFromStatus(apiErr.HTTPStatusCode,
				fmt.Sprintf("%s: %s", p.config.Model, apiErr.Message))
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return nil, providers.ErrorFromStatus(reqErr.HTTPStatusCode,
				fmt.Sprintf("%s: %v", p.config.Model, reqErr.Err))
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewError(providers.CodeEmpty, "no choices returned")
	}

	return &providers.ProviderResponse{
		Text:      providers.CleanOutput(resp.Choices[0].Message.Content),
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		Metadata: map[string]interface{}{
			"model":         resp.Model,
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "compat"
}

type headerRoundTripper struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(h.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range h.headers {
			req.Header.Set(k, v)
		}
	}
	return h.base.RoundTrip(req)
}
