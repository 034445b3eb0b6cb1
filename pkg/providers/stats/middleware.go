package stats

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/nerdneilsfield/go-chapter-translator/internal/metrics"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

// StatisticsMiddleware 记录后端调用指标的包装器
type StatisticsMiddleware struct {
	next providers.TranslationProvider
	now  func() time.Time
}

var _ providers.TranslationProvider = (*StatisticsMiddleware)(nil)

// NewStatisticsMiddleware 创建统计中间件
func NewStatisticsMiddleware(next providers.TranslationProvider) *StatisticsMiddleware {
	return &StatisticsMiddleware{next: next, now: time.Now}
}

// Translate 带统计的翻译方法
func (sm *StatisticsMiddleware) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	start := sm.now()
	resp, err := sm.next.Translate(ctx, req)
	latency := sm.now().Sub(start)

	status := "ok"
	tokensIn, tokensOut := 0, 0
	if err != nil {
		status = ClassifyError(err)
	} else if resp != nil {
		tokensIn, tokensOut = resp.TokensIn, resp.TokensOut
	}
	metrics.RecordBackendCall(sm.next.GetName(), status, latency.Seconds(), tokensIn, tokensOut)

	return resp, err
}

// GetName 返回被包装提供商的名称
func (sm *StatisticsMiddleware) GetName() string {
	return sm.next.GetName()
}

// Unwrap 返回被包装的提供商
func (sm *StatisticsMiddleware) Unwrap() providers.TranslationProvider {
	return sm.next
}

// Close 关闭持有连接的底层提供商，例如 Gemini 客户端
func (sm *StatisticsMiddleware) Close() error {
	if c, ok := sm.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ClassifyError 分类错误类型
func ClassifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}

	var perr *providers.Error
	if errors.As(err, &perr) {
		return perr.Code
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "rate_limit"):
		return "rate_limit"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network"):
		return "network_error"
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized"):
		return "auth_error"
	case strings.Contains(errStr, "quota") || strings.Contains(errStr, "limit"):
		return "quota_exceeded"
	default:
		return "unknown_error"
	}
}
