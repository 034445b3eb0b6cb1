package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/retry"
)

// Fetcher 抓取章节页面并返回解码后的 HTML
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options HTTPFetcher 选项
type Options struct {
	Encoding   string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Client     *http.Client
	Logger     *zap.Logger
}

// HTTPFetcher 通过 HTTP GET 抓取源站页面
type HTTPFetcher struct {
	client    *http.Client
	encoding  encoding.Encoding
	userAgent string
	retry     retry.Config
	logger    *zap.Logger
}

// NewHTTPFetcher 创建抓取器
func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	enc, err := LookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPFetcher{
		client:    client,
		encoding:  enc,
		userAgent: opts.UserAgent,
		retry:     retry.DefaultConfig(opts.MaxRetries),
		logger:    logger.OrNop(opts.Logger),
	}, nil
}

// Fetch 抓取页面，网络错误和 5xx 会重试。失败统一包装为 FETCH_ERROR。
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body []byte
	attempt := 0

	err := retry.Do(ctx, f.retry, func(ctx context.Context) error {
		attempt++
		data, err := f.get(ctx, url)
		if err != nil {
			f.logger.Warn("fetch attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return "", chapter.FetchError(err)
	}

	text, err := Decode(body, f.encoding)
	if err != nil {
		return "", chapter.FetchError(err)
	}

	f.logger.Debug("fetched chapter page",
		zap.String("url", url),
		zap.Int("bytes", len(body)))
	return text, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if retry.IsNetworkError(err) {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if retry.IsRetryableStatus(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, retry.Permanent(statusErr)
	}

	return io.ReadAll(resp.Body)
}

// LookupEncoding 按名称查找编码，空串或 utf-8 返回 nil
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf-8", "utf8":
		return nil, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported source encoding %q: %w", name, err)
	}
	return enc, nil
}

// Decode 把原始字节按指定编码转为 UTF-8
func Decode(data []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		return string(data), nil
	}
	res, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode page: %w", err)
	}
	return string(res), nil
}
