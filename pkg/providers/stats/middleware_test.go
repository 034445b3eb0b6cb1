package stats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/internal/metrics"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

type stubProvider struct {
	resp *providers.ProviderResponse
	err  error
}

func (s *stubProvider) Translate(context.Context, *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	return s.resp, s.err
}

func (s *stubProvider) GetName() string { return "stub" }

type closingProvider struct {
	stubProvider
	closed int
}

func (c *closingProvider) Close() error {
	c.closed++
	return nil
}

func TestMiddlewareClose(t *testing.T) {
	inner := &closingProvider{}
	mw := NewStatisticsMiddleware(inner)
	require.NoError(t, mw.Close())
	assert.Equal(t, 1, inner.closed)

	// 没有实现 io.Closer 的提供商直接忽略
	assert.NoError(t, NewStatisticsMiddleware(&stubProvider{}).Close())
}

func TestMiddlewareRecordsCalls(t *testing.T) {
	ok := metrics.BackendCalls.WithLabelValues("stub", "ok")
	failed := metrics.BackendCalls.WithLabelValues("stub", providers.CodeRateLimit)
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	mw := NewStatisticsMiddleware(&stubProvider{resp: &providers.ProviderResponse{Text: "hi", TokensIn: 3}})
	resp, err := mw.Translate(context.Background(), &providers.ProviderRequest{Text: "你好"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
	assert.Equal(t, "stub", mw.GetName())

	mw = NewStatisticsMiddleware(&stubProvider{err: providers.NewError(providers.CodeRateLimit, "slow down")})
	_, err = mw.Translate(context.Background(), &providers.ProviderRequest{Text: "你好"})
	assert.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestClassifyError(t *testing.T) {
	testCases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "context_canceled"},
		{providers.NewError(providers.CodeAuth, "bad key"), providers.CodeAuth},
		{errors.New("dial tcp: connection refused"), "network_error"},
		{errors.New("monthly quota reached"), "quota_exceeded"},
		{errors.New("something odd"), "unknown_error"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ClassifyError(tc.err), tc.err.Error())
	}
}
