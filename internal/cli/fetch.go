package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-chapter-translator/internal/stream"
)

var (
	// fetch 命令的标志
	fetchServer string
	fetchOutput string
	fetchQuiet  bool
)

const headerWidth = 60

// NewFetchCommand 创建 fetch 命令
func NewFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <chapter-url>",
		Short: "请求运行中的服务翻译一个章节并显示进度",
		Long: `向 serve 启动的服务提交章节 URL，实时显示事件流中的状态和进度。

Examples:
  chaptertrans fetch https://www.69shuba.com/txt/84418/40150610
  chaptertrans fetch https://www.69shuba.com/txt/84418/40150610 --output chapter.html`,
		Args: cobra.ExactArgs(1),
		RunE: runFetch,
	}
	cmd.Flags().StringVar(&fetchServer, "server", "", "服务地址，覆盖 client.server_url")
	cmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "把译文写入文件")
	cmd.Flags().BoolVarP(&fetchQuiet, "quiet", "q", false, "不显示进度")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	serverURL := cfg.Client.ServerURL
	if fetchServer != "" {
		serverURL = fetchServer
	}

	client := &http.Client{Timeout: time.Duration(cfg.Client.Timeout) * time.Second}

	var view progressView = nopView{}
	if !fetchQuiet {
		view = newTermView(cmd.OutOrStdout())
	}

	state, err := fetchChapter(cmd.Context(), client, serverURL, args[0], view)
	if err != nil {
		return err
	}

	if fetchOutput != "" {
		if err := os.WriteFile(fetchOutput, []byte(state.Body), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved to %s\n", fetchOutput)
	} else if fetchQuiet {
		fmt.Fprint(cmd.OutOrStdout(), state.Body)
	}
	return nil
}

// progressView 渲染事件流
type progressView interface {
	Event(rec *stream.Record, state *stream.State)
	Done(state *stream.State)
}

type nopView struct{}

func (nopView) Event(*stream.Record, *stream.State) {}
func (nopView) Done(*stream.State)                  {}

// fetchChapter 提交请求并折叠事件流。流以 error 事件结束时返回该消息。
func fetchChapter(ctx context.Context, client *http.Client, serverURL, chapterURL string, view progressView) (*stream.State, error) {
	payload, err := json.Marshal(map[string]string{"url": chapterURL})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(serverURL, "/") + "/api/translate-chapter"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	state, err := stream.Fold(resp.Body, view.Event)
	view.Done(state)
	if err != nil {
		return state, fmt.Errorf("read stream: %w", err)
	}
	if state.Err != "" {
		return state, errors.New(state.Err)
	}
	if !state.Complete {
		return state, errors.New("stream ended before completion")
	}
	return state, nil
}

// termView 用 pterm 进度条和彩色状态行显示事件流
type termView struct {
	w       io.Writer
	bar     *pterm.ProgressbarPrinter
	status  *color.Color
	title   *color.Color
	failure *color.Color
}

func newTermView(w io.Writer) *termView {
	return &termView{
		w:       w,
		status:  color.New(color.FgCyan),
		title:   color.New(color.FgHiWhite, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
}

func (v *termView) Event(rec *stream.Record, state *stream.State) {
	switch rec.Type {
	case stream.TypeStatus:
		v.status.Fprintf(v.w, "» %s\n", state.Status)
	case stream.TypeMetadata:
		v.title.Fprintln(v.w, headerLine(state.Title, headerWidth))
	case stream.TypeProgress:
		v.advance(state.Progress)
	case stream.TypeError:
		v.failure.Fprintf(v.w, "✗ %s\n", state.Err)
	}
}

func (v *termView) Done(state *stream.State) {
	if v.bar != nil {
		_, _ = v.bar.Stop()
	}
	if state != nil && state.Complete {
		color.New(color.FgGreen).Fprintf(v.w, "✓ %s (%d paragraphs)\n", headerLine(state.Title, headerWidth), strings.Count(state.Body, "<p>"))
	}
}

func (v *termView) advance(progress int) {
	if v.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(stream.ProgressDone).
			WithTitle("翻译进度").
			WithWriter(v.w).
			WithRemoveWhenDone(false).
			Start()
		if err != nil {
			return
		}
		v.bar = bar
	}
	if delta := progress - v.bar.Current; delta > 0 {
		v.bar.Add(delta)
	}
}

// headerLine 按显示宽度截断标题，中文字符占两列
func headerLine(title string, width int) string {
	if title == "" {
		title = "(untitled)"
	}
	return runewidth.Truncate(title, width, "...")
}
