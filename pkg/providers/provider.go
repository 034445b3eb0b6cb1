package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 单次请求超时，批次级别的超时由调用方控制
	Timeout time.Duration `json:"timeout"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout: 2 * time.Minute,
		Headers: make(map[string]string),
	}
}

// TranslationProvider 翻译后端接口。
// 输入为用空行分隔的多段文本，输出应保持相同的分隔结构。
type TranslationProvider interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// GetName 获取提供商名称
	GetName() string
}

// Error 提供商错误
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case CodeRateLimit, CodeTimeout, CodeServerError:
		return true
	default:
		return false
	}
}

// 错误码
const (
	CodeRateLimit   = "rate_limit"
	CodeTimeout     = "timeout"
	CodeServerError = "server_error"
	CodeAuth        = "auth"
	CodeBadRequest  = "bad_request"
	CodeEmpty       = "empty_response"
)

// NewError 创建提供商错误
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// ErrorFromStatus 按 HTTP 状态码归类错误
func ErrorFromStatus(status int, message string) *Error {
	switch {
	case status == 429:
		return NewError(CodeRateLimit, message)
	case status == 401 || status == 403:
		return NewError(CodeAuth, message)
	case status >= 500:
		return NewError(CodeServerError, message)
	default:
		return NewError(CodeBadRequest, message)
	}
}

// ProviderRequest 提供商请求
type ProviderRequest struct {
	Text           string                 `json:"text"`
	SourceLanguage string                 `json:"source_language,omitempty"`
	TargetLanguage string                 `json:"target_language,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ProviderResponse 提供商响应
type ProviderResponse struct {
	Text      string                 `json:"text"`
	TokensIn  int                    `json:"tokens_in,omitempty"`
	TokensOut int                    `json:"tokens_out,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// BuildPrompt 生成 LLM 后端使用的翻译指令
func BuildPrompt(source, target, text string) string {
	if source == "" {
		source = "Chinese"
	}
	if target == "" {
		target = "English"
	}
	return fmt.Sprintf(
		"Translate the following %s text to %s naturally and fluently, clearly and accurately, maintaining the tone and intent of original text:\n\n%s",
		source, target, text)
}

// CleanOutput 去掉模型常见的包裹（代码块围栏、首尾空白）
func CleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") && len(text) >= 6 {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		if i := strings.IndexByte(text, '\n'); i >= 0 && !strings.Contains(text[:i], " ") {
			text = text[i+1:]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
