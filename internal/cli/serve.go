package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/config"
	"github.com/nerdneilsfield/go-chapter-translator/internal/extractor"
	"github.com/nerdneilsfield/go-chapter-translator/internal/gateway"
	"github.com/nerdneilsfield/go-chapter-translator/internal/publish"
	"github.com/nerdneilsfield/go-chapter-translator/internal/segmenter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/server"
	"github.com/nerdneilsfield/go-chapter-translator/internal/source"
	"github.com/nerdneilsfield/go-chapter-translator/internal/store"
	"github.com/nerdneilsfield/go-chapter-translator/internal/translator"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/factory"
)

var serveAddr string

// NewServeCommand 创建 serve 命令
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动章节翻译 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "监听地址，覆盖 server.addr")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, closers, err := buildGateway(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAll(closers, log)

	staticDir := ""
	if cfg.Static.Enabled {
		staticDir = cfg.Static.Dir
	}
	srv := server.New(gw, server.Options{
		AllowedDomain: cfg.Source.AllowedDomain,
		StaticDir:     staticDir,
		Logger:        log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return <-errCh
}

// buildGateway 按配置组装网关及其依赖，调用方负责关闭返回的资源
func buildGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gateway.Gateway, []io.Closer, error) {
	fetcher, err := source.NewHTTPFetcher(source.Options{
		Encoding:   cfg.Source.Encoding,
		UserAgent:  cfg.Source.UserAgent,
		Timeout:    cfg.SourceTimeout(),
		MaxRetries: cfg.Source.MaxRetries,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}

	filter, err := extractor.NewFilter(cfg.Site.FilterMarkers)
	if err != nil {
		return nil, nil, fmt.Errorf("compile filter markers: %w", err)
	}
	ext, err := extractor.New(extractor.ProfileFromConfig(cfg.Site), filter)
	if err != nil {
		return nil, nil, fmt.Errorf("create extractor: %w", err)
	}

	backend, err := factory.New().CreateProvider(cfg.Translation)
	if err != nil {
		return nil, nil, err
	}
	bt := translator.NewBatchTranslator(backend, translator.Options{
		BatchSize:         cfg.Translation.BatchSize,
		CallTimeout:       cfg.CallTimeout(),
		RequestsPerMinute: cfg.Translation.RequestsPerMinute,
		MaxRetries:        cfg.Translation.MaxRetries,
		SourceLanguage:    cfg.Translation.SourceLang,
		TargetLanguage:    cfg.Translation.TargetLang,
		Logger:            log,
	})

	var pub publish.Publisher = publish.NopPublisher{}
	if cfg.Static.Enabled {
		pub = publish.NewFilePublisher(cfg.Static.Dir, log)
	}

	st, err := store.New(ctx, cfg.Store, cfg.RedisTTL(), log)
	if err != nil {
		_ = backend.Close()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	gw, err := gateway.New(gateway.Deps{
		Store:      st,
		Fetcher:    fetcher,
		Extractor:  ext,
		Segmenter:  segmenter.New(filter),
		Translator: bt,
		Publisher:  pub,
		Logger:     log,
	}, gateway.Options{DedupeInflight: cfg.Gateway.DedupeInflight})
	if err != nil {
		_ = st.Close()
		_ = backend.Close()
		return nil, nil, err
	}

	log.Info("gateway ready",
		zap.String("provider", backend.GetName()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("static", cfg.Static.Enabled))
	return gw, []io.Closer{st, backend}, nil
}

// closeAll 按顺序关闭资源，失败只记录日志
func closeAll(closers []io.Closer, log *zap.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn("failed to close resource", zap.String("resource", fmt.Sprintf("%T", c)), zap.Error(err))
		}
	}
}
