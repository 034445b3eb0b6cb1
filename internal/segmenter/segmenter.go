package segmenter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-chapter-translator/internal/extractor"
)

var blankLine = regexp.MustCompile(`\n\s*\n`)

// Segmenter 把清理后的正文切分为段落文本
type Segmenter struct {
	filter *extractor.Filter
}

// New 创建切分器
func New(filter *extractor.Filter) *Segmenter {
	return &Segmenter{filter: filter}
}

// Segment 按阅读顺序返回非空段落。
// 优先使用 p 元素；没有可用的 p 时取容器的直接文本节点（源站用 <br> 分行），
// 仍为空时按空行切分纯文本。
func (s *Segmenter) Segment(body string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div id=\"segment-root\">" + body + "</div>"))
	if err != nil {
		return s.fromPlainText(body)
	}
	root := doc.Find("#segment-root").First()

	var segments []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		segments = s.keep(segments, p.Text())
	})
	if len(segments) > 0 {
		return segments
	}

	for _, node := range root.Nodes {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				segments = s.keep(segments, c.Data)
			}
		}
	}
	if len(segments) > 0 {
		return segments
	}

	return s.fromPlainText(root.Text())
}

func (s *Segmenter) fromPlainText(text string) []string {
	var segments []string
	for _, block := range blankLine.Split(strings.TrimSpace(text), -1) {
		segments = s.keep(segments, block)
	}
	return segments
}

func (s *Segmenter) keep(segments []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" || s.filter.Match(text) {
		return segments
	}
	return append(segments, text)
}
