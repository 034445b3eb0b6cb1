package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

// Config Gemini 配置
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gemini-1.5-flash",
		Temperature: 0.3,
		MaxTokens:   4096,
	}
}

// contentGenerator 抽象 genai.GenerativeModel，便于替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Provider Gemini 提供商
type Provider struct {
	config Config
	client *genai.Client
	model  contentGenerator
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建 Gemini 提供商
func New(ctx context.Context, config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	opts := []option.ClientOption{option.WithAPIKey(config.APIKey)}
	if config.APIEndpoint != "" {
		opts = append(opts, option.WithEndpoint(config.APIEndpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	if config.Temperature > 0 {
		model.SetTemperature(float32(config.Temperature))
	}
	if config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(config.MaxTokens))
	}

	return &Provider{config: config, client: client, model: model}, nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	prompt := providers.BuildPrompt(req.SourceLanguage, req.TargetLanguage, req.Text)

	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	text, finish := responseText(resp)
	if text == "" {
		return nil, providers.NewError(providers.CodeEmpty,
			fmt.Sprintf("gemini: empty response (finish reason %s)", finish))
	}

	out := &providers.ProviderResponse{
		Text: providers.CleanOutput(text),
		Metadata: map[string]interface{}{
			"model":         p.config.Model,
			"finish_reason": finish,
		},
	}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "gemini"
}

// Close 关闭底层客户端
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// responseText 拼接第一个候选的所有文本片段
func responseText(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", "no candidates"
	}
	cand := resp.Candidates[0]
	finish := cand.FinishReason.String()
	if cand.Content == nil {
		return "", finish
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), finish
}
