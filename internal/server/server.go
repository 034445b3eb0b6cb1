// Package server 提供章节翻译的 HTTP 接口
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/gateway"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
	"github.com/nerdneilsfield/go-chapter-translator/internal/stream"
)

// ContentTypeNDJSON 事件流的 Content-Type
const ContentTypeNDJSON = "application/x-ndjson"

// MsgInvalidURL URL 缺失或不受支持时的错误消息
const MsgInvalidURL = "Invalid or missing URL"

// ChapterService 服务端依赖的网关接口
type ChapterService interface {
	FetchTranslatedChapter(ctx context.Context, req gateway.Request, em *stream.Emitter) error
}

// Options 服务选项
type Options struct {
	AllowedDomain string // URL 必须包含的域名
	StaticDir     string // 为空时不提供静态文件
	Logger        *zap.Logger
}

// Server HTTP 服务
type Server struct {
	echo    *echo.Echo
	service ChapterService
	opts    Options
	logger  *zap.Logger
}

type translateRequest struct {
	URL           string `json:"url"`
	BookID        string `json:"bookId"`
	BookNumber    string `json:"bookNumber"`
	ChapterID     string `json:"chapterId"`
	ChapterNumber string `json:"chapterNumber"`
}

// New 创建服务并注册路由
func New(service ChapterService, opts Options) *Server {
	s := &Server{
		echo:    echo.New(),
		service: service,
		opts:    opts,
		logger:  logger.OrNop(opts.Logger),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(s.requestLogger())

	s.echo.POST("/api/translate-chapter", s.handleTranslate)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if opts.StaticDir != "" {
		s.echo.Static("/", opts.StaticDir)
	}
	return s
}

// Handler 返回 http.Handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start 开始监听，关闭时返回 nil
func (s *Server) Start(addr string) error {
	s.logger.Info("starting server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅退出
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleTranslate(c echo.Context) error {
	var body translateRequest
	if err := c.Bind(&body); err != nil || !s.validURL(body.URL) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": MsgInvalidURL})
	}

	req := gateway.Request{
		URL:       body.URL,
		BookID:    firstNonEmpty(body.BookID, body.BookNumber),
		ChapterID: firstNonEmpty(body.ChapterID, body.ChapterNumber),
	}
	if book, chap, ok := chapter.IDsFromURL(req.URL); ok {
		if req.BookID == "" {
			req.BookID = book
		}
		if req.ChapterID == "" {
			req.ChapterID = chap
		}
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, ContentTypeNDJSON)
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	em := stream.NewEmitter(res, req.BookID, req.ChapterID)
	err := s.service.FetchTranslatedChapter(c.Request().Context(), req, em)
	fields := []zap.Field{
		zap.String("requestId", res.Header().Get(echo.HeaderXRequestID)),
		zap.String("chapterUrl", req.URL),
		zap.Int("events", em.Count()),
		zap.Int("progress", em.LastProgress()),
		zap.String("terminal", string(em.Terminal())),
	}
	if err != nil {
		s.logger.Warn("chapter request ended with error", append(fields, zap.Error(err))...)
		return nil
	}
	s.logger.Debug("chapter stream finished", fields...)
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// validURL 只接受指向允许域名的 http(s) 地址
func (s *Server) validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return s.opts.AllowedDomain == "" || strings.Contains(u.Host, s.opts.AllowedDomain)
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("requestId", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.logger.Error("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.logger.Info("request completed", fields...)
			return nil
		},
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
