package translator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
	"github.com/nerdneilsfield/go-chapter-translator/internal/metrics"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/retry"
)

// Delimiter 段落之间的分隔符，发送给后端和解析响应时都使用它
const Delimiter = "\n\n"

// DefaultBatchSize 每批段落数
const DefaultBatchSize = 5

// Callbacks 批次进度回调，i 从 0 开始
type Callbacks struct {
	OnBatchStart func(i, n int)
	OnBatchDone  func(i, n int, fragments []string)
}

// Options 批量翻译选项
type Options struct {
	BatchSize         int
	CallTimeout       time.Duration // 单次后端调用超时，0 表示不限
	RequestsPerMinute int           // 0 表示不限速
	MaxRetries        int           // 批次失败重试次数，默认不重试
	SourceLanguage    string
	TargetLanguage    string
	Logger            *zap.Logger
}

// BatchTranslator 按固定大小分批、顺序调用后端的翻译器
type BatchTranslator struct {
	backend   providers.TranslationProvider
	opts      Options
	limiter   *rate.Limiter
	retry     retry.Config
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewBatchTranslator 创建批量翻译器
func NewBatchTranslator(backend providers.TranslationProvider, opts Options) *BatchTranslator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	bt := &BatchTranslator{
		backend:   backend,
		opts:      opts,
		retry:     retry.DefaultConfig(opts.MaxRetries),
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.OrNop(opts.Logger),
	}
	if opts.RequestsPerMinute > 0 {
		bt.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return bt
}

// Translate 翻译全部段落，返回与输入一一对应的 <p> 片段。
// 任一批次失败即中止并返回 TRANSLATION_ERROR；已通过回调交出的片段不会撤回。
func (bt *BatchTranslator) Translate(ctx context.Context, segments []string, cb Callbacks) ([]string, error) {
	batches := Partition(segments, bt.opts.BatchSize)
	n := len(batches)
	fragments := make([]string, 0, len(segments))

	bt.logger.Info("starting batch translation",
		zap.Int("segments", len(segments)),
		zap.Int("batches", n),
		zap.String("provider", bt.backend.GetName()))

	for i, batch := range batches {
		// 批次之间检查取消
		if err := ctx.Err(); err != nil {
			return fragments, chapter.TranslationError(err)
		}

		if cb.OnBatchStart != nil {
			cb.OnBatchStart(i, n)
		}

		out, err := bt.translateBatch(ctx, batch)
		if err != nil {
			bt.logger.Warn("batch translation failed",
				zap.Int("batch", i+1),
				zap.Int("batches", n),
				zap.Error(err))
			return fragments, chapter.TranslationError(err)
		}

		fragments = append(fragments, out...)
		if cb.OnBatchDone != nil {
			cb.OnBatchDone(i, n, out)
		}
	}

	return fragments, nil
}

// translateBatch 对单个批次调用后端，按需限速和重试
func (bt *BatchTranslator) translateBatch(ctx context.Context, batch []string) ([]string, error) {
	var text string
	err := retry.Do(ctx, bt.retry, func(ctx context.Context) error {
		if bt.limiter != nil {
			if err := bt.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
		}

		callCtx, cancel := bt.callContext(ctx)
		defer cancel()

		resp, err := bt.backend.Translate(callCtx, &providers.ProviderRequest{
			Text:           strings.Join(batch, Delimiter),
			SourceLanguage: bt.opts.SourceLanguage,
			TargetLanguage: bt.opts.TargetLanguage,
		})
		if err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return errors.New("translation backend timed out")
			}
			var perr *providers.Error
			if errors.As(err, &perr) && !perr.IsRetryable() {
				return retry.Permanent(err)
			}
			return err
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return nil, err
	}

	fragments, padded := Reassemble(text, len(batch), bt.sanitizer.Sanitize)
	if padded > 0 {
		bt.logger.Warn("backend returned fewer paragraphs than requested",
			zap.Int("expected", len(batch)),
			zap.Int("padded", padded))
		metrics.RecordPadding(padded)
	}
	return fragments, nil
}

func (bt *BatchTranslator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if bt.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, bt.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// Partition 按 size 切分段落，最后一批可以更短
func Partition(segments []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(segments)+size-1)/size)
	for start := 0; start < len(segments); start += size {
		end := start + size
		if end > len(segments) {
			end = len(segments)
		}
		batches = append(batches, segments[start:end])
	}
	return batches
}

// Reassemble 把后端响应拆回 count 个段落片段。
// 响应不足时用空段落补齐，多余的部分丢弃，返回补齐的数量。
func Reassemble(response string, count int, sanitize func(string) string) ([]string, int) {
	pieces := make([]string, 0, count)
	for _, piece := range strings.Split(response, Delimiter) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		pieces = append(pieces, piece)
	}

	fragments := make([]string, count)
	padded := 0
	for i := 0; i < count; i++ {
		if i >= len(pieces) {
			fragments[i] = chapter.EmptyParagraph
			padded++
			continue
		}
		text := pieces[i]
		if sanitize != nil {
			text = sanitize(text)
		}
		fragments[i] = chapter.Paragraph(text)
	}
	return fragments, padded
}
