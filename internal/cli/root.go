package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/config"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
)

var (
	// 命令行标志变量
	cfgFile   string
	debugMode bool
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chaptertrans",
		Short: "网络小说章节抓取与流式翻译服务",
		Long: `chaptertrans 抓取 69shuba 上的章节页面，提取正文并分批翻译，
以 NDJSON 事件流的形式把进度和译文推送给客户端。翻译完成的章节会写入存储，
再次请求时直接回放。

支持的翻译提供商:
  - gemini: Google Gemini (默认)
  - openai: OpenAI GPT 模型
  - compat: OpenAI 兼容接口 (Ollama, DeepSeek 等)
  - google: Google Cloud Translation
  - deepl: DeepL 专业翻译`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 $HOME/.chaptertrans.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")

	rootCmd.AddCommand(
		NewServeCommand(),
		NewFetchCommand(),
		NewCacheCommand(),
		NewVersionCommand(version, commit, buildDate),
	)

	return rootCmd
}

// loadConfig 加载配置并创建日志记录器
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if debugMode {
		cfg.Debug = true
	}
	return cfg, logger.NewLogger(cfg.Debug), nil
}

// NewVersionCommand 创建 version 命令
func NewVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chaptertrans %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
