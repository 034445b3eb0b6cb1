// Package publish 把翻译完成的章节写成可直接托管的静态页面
package publish

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/logger"
)

// Publisher 静态发布接口
type Publisher interface {
	Publish(ctx context.Context, bookID, chapterID string, doc *chapter.Document) error
}

// NopPublisher 不做任何事
type NopPublisher struct{}

// Publish 实现 Publisher
func (NopPublisher) Publish(context.Context, string, string, *chapter.Document) error {
	return nil
}

var safeSegment = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID 判断 id 能否作为路径片段
func ValidID(id string) bool {
	return safeSegment.MatchString(id)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}} - Novel Translator</title>
  <meta property="og:title" content="{{.Title}} - Novel Translator">
  <meta property="og:description" content="Translated Chinese novel chapter">
  <meta name="description" content="Translated Chinese novel chapter">
  <link rel="canonical" href="{{.Canonical}}">
  <script>
    window.chapterData = {{.Data}};
  </script>
</head>
<body>
  <div id="root">
    <article class="chapter">
      <h1>{{.Title}}</h1>
      {{.Body}}
    </article>
  </div>
</body>
</html>
`

var page = template.Must(template.New("chapter").Parse(pageTemplate))

type chapterData struct {
	BookNumber    string  `json:"bookNumber"`
	ChapterNumber string  `json:"chapterNumber"`
	ChapterTitle  string  `json:"chapterTitle"`
	PrevChapter   *string `json:"prevChapter"`
	NextChapter   *string `json:"nextChapter"`
}

type pageView struct {
	Title     string
	Canonical string
	Data      chapterData
	Body      template.HTML
}

// FilePublisher 写入 <dir>/<bookId>/<chapterId>.html
type FilePublisher struct {
	dir    string
	logger *zap.Logger
}

// NewFilePublisher 创建文件发布器
func NewFilePublisher(dir string, log *zap.Logger) *FilePublisher {
	return &FilePublisher{dir: dir, logger: logger.OrNop(log)}
}

// Path 章节页面的文件路径
func (p *FilePublisher) Path(bookID, chapterID string) string {
	return filepath.Join(p.dir, bookID, chapterID+".html")
}

// Publish 渲染并原子地写入页面
func (p *FilePublisher) Publish(ctx context.Context, bookID, chapterID string, doc *chapter.Document) error {
	if !ValidID(bookID) || !ValidID(chapterID) {
		return fmt.Errorf("unsafe chapter identifiers %q/%q", bookID, chapterID)
	}
	if doc == nil {
		return fmt.Errorf("nothing to publish")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	view := pageView{
		Title:     doc.Title,
		Canonical: "/" + bookID + "/" + chapterID + ".html",
		Data: chapterData{
			BookNumber:    bookID,
			ChapterNumber: chapterID,
			ChapterTitle:  doc.Title,
			PrevChapter:   optional(doc.PrevURL()),
			NextChapter:   optional(doc.NextURL()),
		},
		// 正文在翻译阶段已经过清洗
		Body: template.HTML(doc.TranslatedBody),
	}
	if err := page.Execute(&buf, view); err != nil {
		return fmt.Errorf("render chapter page: %w", err)
	}

	bookDir := filepath.Join(p.dir, bookID)
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		return fmt.Errorf("create book directory: %w", err)
	}

	tmp, err := os.CreateTemp(bookDir, "."+chapterID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write chapter page: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write chapter page: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod chapter page: %w", err)
	}

	target := p.Path(bookID, chapterID)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("move chapter page: %w", err)
	}

	p.logger.Debug("published static page", zap.String("path", target))
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
