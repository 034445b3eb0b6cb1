package google

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config Google Cloud Translation v2 配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider Google Translate提供商
type Provider struct {
	config     Config
	httpClient *http.Client
}

var _ providers.TranslationProvider = (*Provider)(nil)

// New 创建新的Google Translate提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Translate 执行翻译。
// 每个段落作为独立的 q 参数提交，再用空行拼回，保证段落数一一对应。
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := url.Values{}
	params.Set("key", p.config.APIKey)
	params.Set("target", normalizeLanguageCode(req.TargetLanguage))
	if src := normalizeLanguageCode(req.SourceLanguage); src != "" {
		params.Set("source", src)
	}
	params.Set("format", "text")
	for _, para := range strings.Split(req.Text, "\n\n") {
		params.Add("q", para)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.APIEndpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(resp.Body)
		var apiErr APIError
		msg := resp.Status
		if json.Unmarshal(errBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, providers.ErrorFromStatus(resp.StatusCode, "Google API error: "+msg)
	}

	var translateResp TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(translateResp.Data.Translations) == 0 {
		return nil, providers.NewError(providers.CodeEmpty, "no translation returned")
	}

	parts := make([]string, 0, len(translateResp.Data.Translations))
	for _, t := range translateResp.Data.Translations {
		parts = append(parts, html.UnescapeString(t.TranslatedText))
	}

	return &providers.ProviderResponse{
		Text: strings.Join(parts, "\n\n"),
		Metadata: map[string]interface{}{
			"detected_source": translateResp.Data.Translations[0].DetectedSourceLanguage,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "google"
}

// normalizeLanguageCode 标准化语言代码
func normalizeLanguageCode(lang string) string {
	replacements := map[string]string{
		"chinese":             "zh",
		"chinese_simplified":  "zh-CN",
		"chinese_traditional": "zh-TW",
		"english":             "en",
		"spanish":             "es",
		"french":              "fr",
		"german":              "de",
		"japanese":            "ja",
		"korean":              "ko",
		"portuguese":          "pt",
		"russian":             "ru",
		"italian":             "it",
	}

	lower := strings.ToLower(lang)
	if normalized, ok := replacements[lower]; ok {
		return normalized
	}

	// 处理 xx_YY 格式到 xx-YY
	if strings.Contains(lang, "_") {
		return strings.Replace(lang, "_", "-", 1)
	}

	return lang
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// APIError API错误
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
