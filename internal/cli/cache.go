package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/store"
)

const previewWidth = 80

// NewCacheCommand 创建 cache 命令
func NewCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "查看章节存储",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "get <chapter-url>",
		Short: "从配置的存储中读取一个章节",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheGet,
	})
	return cacheCmd
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	st, err := store.New(cmd.Context(), cfg.Store, cfg.RedisTTL(), log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	doc, err := st.Get(cmd.Context(), chapter.Key(args[0]))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("chapter %s is not cached", args[0])
	}
	if err != nil {
		return err
	}

	renderDocument(cmd.OutOrStdout(), doc)
	return nil
}

// renderDocument 以表格形式输出章节
func renderDocument(w io.Writer, doc *chapter.Document) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	tw.AppendRow(table.Row{"Field", "Value"})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"URL", doc.Key.String()})
	tw.AppendRow(table.Row{"Title", doc.Title})
	tw.AppendRow(table.Row{"Book", orDash(doc.BookID)})
	tw.AppendRow(table.Row{"Chapter", orDash(doc.ChapterID)})
	tw.AppendRow(table.Row{"Prev", orDash(doc.PrevURL())})
	tw.AppendRow(table.Row{"Next", orDash(doc.NextURL())})
	tw.AppendRow(table.Row{"Body", runewidth.Truncate(doc.TranslatedBody, previewWidth, "...")})
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"Created", formatTime(doc.CreatedAt)})
	tw.AppendRow(table.Row{"Updated", formatTime(doc.UpdatedAt)})

	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
