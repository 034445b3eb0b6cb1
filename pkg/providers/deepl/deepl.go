package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

// Config DeepL配置
type Config struct {
	providers.BaseConfig
	UseFreeAPI bool `json:"use_free_api"` // 是否使用免费API
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig: providers.DefaultConfig(),
	}
}

// Provider DeepL提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的DeepL提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		if config.UseFreeAPI || strings.HasSuffix(config.APIKey, ":fx") {
			config.APIEndpoint = "https://api-free.deepl.com/v2"
		} else {
			config.APIEndpoint = "https://api.deepl.com/v2"
		}
	}

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Translate 执行翻译，每个段落作为独立的 text 参数提交
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := url.Values{}
	for _, para := range strings.Split(req.Text, "\n\n") {
		params.Add("text", para)
	}
	if src := normalizeLanguageCode(req.SourceLanguage, true); src != "" {
		params.Set("source_lang", src)
	}
	params.Set("target_lang", normalizeLanguageCode(req.TargetLanguage, false))

	resp, err := p.translate(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Translations) == 0 {
		return nil, providers.NewError(providers.CodeEmpty, "no translation returned")
	}

	parts := make([]string, 0, len(resp.Translations))
	for _, t := range resp.Translations {
		parts = append(parts, t.Text)
	}

	return &providers.ProviderResponse{
		Text: strings.Join(parts, "\n\n"),
		Metadata: map[string]interface{}{
			"detected_source": resp.Translations[0].DetectedSourceLanguage,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deepl"
}

// translate 执行翻译请求
func (p *Provider) translate(ctx context.Context, params url.Values) (*TranslateResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(p.config.APIEndpoint, "/")+"/translate",
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.config.APIKey)
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, resp.Status, errBody)
	}

	var translateResp TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &translateResp, nil
}

func statusError(code int, status string, body []byte) *providers.Error {
	switch code {
	case 400:
		return providers.NewError(providers.CodeBadRequest, "bad request: "+string(body))
	case 403:
		return providers.NewError(providers.CodeAuth, "authentication failed")
	case 413:
		return providers.NewError(providers.CodeBadRequest, "request size exceeded")
	case 429:
		return providers.NewError(providers.CodeRateLimit, "too many requests")
	case 456:
		return providers.NewError(providers.CodeRateLimit, "quota exceeded")
	default:
		return providers.ErrorFromStatus(code, "API error: "+status)
	}
}

// normalizeLanguageCode 标准化语言代码为DeepL格式
func normalizeLanguageCode(lang string, isSource bool) string {
	// DeepL使用大写的语言代码
	upper := strings.ToUpper(lang)

	replacements := map[string]string{
		"CHINESE":    "ZH",
		"ENGLISH":    "EN",
		"SPANISH":    "ES",
		"FRENCH":     "FR",
		"GERMAN":     "DE",
		"JAPANESE":   "JA",
		"KOREAN":     "KO",
		"PORTUGUESE": "PT",
		"RUSSIAN":    "RU",
		"ITALIAN":    "IT",
	}
	if normalized, ok := replacements[upper]; ok {
		upper = normalized
	}

	// 对于英语和葡萄牙语，目标语言需要指定变体
	if !isSource {
		switch upper {
		case "EN":
			return "EN-US"
		case "PT":
			return "PT-BR"
		}
	}

	// 处理 xx_YY 格式到 XX-YY
	return strings.Replace(upper, "_", "-", 1)
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
