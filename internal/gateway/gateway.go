// Package gateway 组合抓取、提取、分段、翻译与存储，按请求把章节以事件流返回
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/extractor"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
	"github.com/nerdneilsfield/go-chapter-translator/internal/metrics"
	"github.com/nerdneilsfield/go-chapter-translator/internal/publish"
	"github.com/nerdneilsfield/go-chapter-translator/internal/source"
	"github.com/nerdneilsfield/go-chapter-translator/internal/store"
	"github.com/nerdneilsfield/go-chapter-translator/internal/stream"
	"github.com/nerdneilsfield/go-chapter-translator/internal/translator"
)

// 请求结果，用作指标标签
const (
	OutcomeHit        = "hit"
	OutcomeTranslated = "translated"
	OutcomeFailed     = "failed"
	OutcomeCancelled  = "cancelled"
)

// 状态文本
const (
	StatusCached      = "Loading cached translation..."
	StatusFetching    = "Fetching chapter content..."
	StatusExtracting  = "Extracting chapter content..."
	StatusTranslating = "Translating chapter..."
	StatusFinalizing  = "Finalizing translation..."
	StatusComplete    = "Translation complete!"
)

// 各阶段的进度
const (
	progressFetch     = 10
	progressExtract   = 20
	progressTranslate = 30
	progressBatchSpan = 60
	progressFinalize  = 90
)

// Extractor 从页面中提取正文
type Extractor interface {
	Extract(markup string) (*extractor.Result, error)
}

// Segmenter 把正文拆成段落
type Segmenter interface {
	Segment(body string) []string
}

// Translator 分批翻译段落
type Translator interface {
	Translate(ctx context.Context, segments []string, cb translator.Callbacks) ([]string, error)
}

// Request 单个章节请求
type Request struct {
	URL       string
	BookID    string
	ChapterID string
}

// Deps 网关依赖
type Deps struct {
	Store      store.Store
	Fetcher    source.Fetcher
	Extractor  Extractor
	Segmenter  Segmenter
	Translator Translator
	Publisher  publish.Publisher
	Logger     *zap.Logger
}

// Options 网关选项
type Options struct {
	// DedupeInflight 为 true 时同一章节的并发未命中只翻译一次
	DedupeInflight bool
}

// Gateway 缓存优先的章节网关
type Gateway struct {
	deps   Deps
	opts   Options
	flight singleflight.Group
	logger *zap.Logger
	now    func() time.Time
}

// New 创建网关
func New(deps Deps, opts Options) (*Gateway, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("gateway: store is required")
	case deps.Fetcher == nil:
		return nil, errors.New("gateway: fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("gateway: extractor is required")
	case deps.Segmenter == nil:
		return nil, errors.New("gateway: segmenter is required")
	case deps.Translator == nil:
		return nil, errors.New("gateway: translator is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = publish.NopPublisher{}
	}
	return &Gateway{
		deps:   deps,
		opts:   opts,
		logger: logger.OrNop(deps.Logger),
		now:    time.Now,
	}, nil
}

// FetchTranslatedChapter 返回章节的翻译，事件写入 em。
// 命中缓存时直接回放；未命中时完整走一遍管道，成功后写回存储并发布静态页。
// 失败会以 error 事件结束流，同时返回错误供调用方记录。
func (g *Gateway) FetchTranslatedChapter(ctx context.Context, req Request, em *stream.Emitter) error {
	if req.URL == "" {
		err := chapter.InvalidRequest("Invalid or missing URL")
		_ = em.Error(err.Message)
		metrics.RecordRequest(OutcomeFailed)
		return err
	}
	if req.BookID == "" || req.ChapterID == "" {
		if book, chap, ok := chapter.IDsFromURL(req.URL); ok {
			if req.BookID == "" {
				req.BookID = book
			}
			if req.ChapterID == "" {
				req.ChapterID = chap
			}
		}
	}

	log := logger.ForChapter(g.logger, req.BookID, req.ChapterID, req.URL)
	key := chapter.Key(req.URL)

	if ok, err := g.serveCached(ctx, key, em, log); ok {
		return err
	}

	if !g.opts.DedupeInflight {
		return g.translate(ctx, req, em, log)
	}

	// claimed 由本请求的 fn 或提前离开的调用方之一抢占；
	// 抢到的 fn 负责翻译，调用方抢到则 fn 不再写事件
	var claimed atomic.Bool
	ch := g.flight.DoChan(key.String(), func() (interface{}, error) {
		if !claimed.CompareAndSwap(false, true) {
			return nil, ctx.Err()
		}
		return nil, g.translate(ctx, req, em, log)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
		if claimed.Load() {
			return res.Err
		}
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			log.Debug("left in-flight translation", zap.Error(ctx.Err()))
			return g.abort(ctx.Err())
		}
		res = <-ch
		return res.Err
	}

	// 跟随者：等领头请求结束后重新查缓存，仍未命中则自己翻译
	log.Debug("joined in-flight translation", zap.Error(res.Err))
	if ok, err := g.serveCached(ctx, key, em, log); ok {
		return err
	}
	return g.translate(ctx, req, em, log)
}

// serveCached 命中时回放缓存并返回 true。读取失败按未命中处理。
func (g *Gateway) serveCached(ctx context.Context, key chapter.Key, em *stream.Emitter, log *zap.Logger) (bool, error) {
	doc, err := g.deps.Store.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		metrics.RecordCacheLookup("miss")
		return false, nil
	case err != nil:
		log.Warn("store lookup failed, treating as miss", zap.Error(err))
		metrics.RecordCacheLookup("error")
		return false, nil
	}

	metrics.RecordCacheLookup("hit")
	log.Info("serving cached translation")

	err = firstError(
		em.Status(StatusCached),
		em.Metadata(stream.NewMetadata(doc.Title, doc.PrevURL(), doc.NextURL())),
		em.Content(doc.TranslatedBody),
		em.Complete(),
	)
	if err != nil {
		metrics.RecordRequest(OutcomeCancelled)
		return true, err
	}
	metrics.RecordRequest(OutcomeHit)
	return true, nil
}

// translate 未命中时的完整管道
func (g *Gateway) translate(ctx context.Context, req Request, em *stream.Emitter, log *zap.Logger) error {
	start := g.now()

	if err := step(em, StatusFetching, progressFetch); err != nil {
		return g.abort(err)
	}
	markup, err := g.deps.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return g.fail(ctx, em, log, err)
	}

	if err := step(em, StatusExtracting, progressExtract); err != nil {
		return g.abort(err)
	}
	if err := ctx.Err(); err != nil {
		return g.fail(ctx, em, log, err)
	}
	res, err := g.deps.Extractor.Extract(markup)
	if err != nil {
		return g.fail(ctx, em, log, err)
	}
	segments := g.deps.Segmenter.Segment(res.Body)

	if err := em.Metadata(stream.NewMetadata(res.Title, res.PrevURL, res.NextURL)); err != nil {
		return g.abort(err)
	}
	if err := step(em, StatusTranslating, progressTranslate); err != nil {
		return g.abort(err)
	}

	log.Info("translating chapter",
		zap.String("title", res.Title),
		zap.Int("segments", len(segments)))

	fragments, err := g.deps.Translator.Translate(ctx, segments, translator.Callbacks{
		OnBatchStart: func(i, n int) {
			_ = em.Status(fmt.Sprintf("Translating batch %d/%d...", i+1, n))
			_ = em.Progress(progressTranslate + i*progressBatchSpan/n)
		},
		OnBatchDone: func(_, _ int, batch []string) {
			for _, fragment := range batch {
				_ = em.Content(fragment)
			}
		},
	})
	if err != nil {
		return g.fail(ctx, em, log, err)
	}

	if err := step(em, StatusFinalizing, progressFinalize); err != nil {
		return g.abort(err)
	}

	doc := &chapter.Document{
		Key:            chapter.Key(req.URL),
		Title:          res.Title,
		TranslatedBody: chapter.JoinFragments(fragments),
		PrevKey:        chapter.OptionalKey(res.PrevURL),
		NextKey:        chapter.OptionalKey(res.NextURL),
		BookID:         req.BookID,
		ChapterID:      req.ChapterID,
	}

	// 客户端已断开时不写回
	if err := ctx.Err(); err != nil {
		return g.abort(err)
	}
	if err := g.deps.Store.Upsert(ctx, doc); err != nil {
		perr := chapter.PersistenceError("store", err)
		log.Error("failed to save translation", zap.Error(perr))
		metrics.RecordPersistenceFailure("store")
	}

	if err := firstError(em.Status(StatusComplete), em.Complete()); err != nil {
		return g.abort(err)
	}
	metrics.RecordRequest(OutcomeTranslated)
	log.Info("chapter translated",
		zap.Int("paragraphs", len(fragments)),
		zap.Duration("elapsed", g.now().Sub(start)))

	g.publish(ctx, req, doc, log)
	return nil
}

// publish 发布静态页，失败只记录日志
func (g *Gateway) publish(ctx context.Context, req Request, doc *chapter.Document, log *zap.Logger) {
	if !publish.ValidID(req.BookID) || !publish.ValidID(req.ChapterID) {
		log.Debug("skipping static page without usable identifiers")
		return
	}
	if err := g.deps.Publisher.Publish(ctx, req.BookID, req.ChapterID, doc); err != nil {
		log.Warn("failed to publish static page", zap.Error(chapter.PersistenceError("static", err)))
		metrics.RecordPersistenceFailure("static")
	}
}

// fail 以 error 事件结束流。请求已取消时不再写事件。
func (g *Gateway) fail(ctx context.Context, em *stream.Emitter, log *zap.Logger, err error) error {
	if ctx.Err() != nil {
		log.Info("request cancelled", zap.Error(err))
		return g.abort(ctx.Err())
	}
	log.Error("chapter request failed", zap.Error(err))
	metrics.RecordRequest(OutcomeFailed)
	_ = em.Error(chapter.UserMessage(err))
	return err
}

// abort 客户端已不可达，放弃剩余工作
func (g *Gateway) abort(err error) error {
	metrics.RecordRequest(OutcomeCancelled)
	return err
}

func step(em *stream.Emitter, status string, progress int) error {
	return firstError(em.Status(status), em.Progress(progress))
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
