package extractor

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/net/html"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/config"
)

const matchTimeout = 100 * time.Millisecond

// SiteProfile 源站页面结构约定
type SiteProfile struct {
	BaseURL           string
	ContainerSelector string
	TitleSelector     string
	NavSelector       string
	PrevLabel         string
	NextLabel         string
	DefaultTitle      string
	RemoveSelectors   []string
}

// ProfileFromConfig 从配置构造站点约定
func ProfileFromConfig(cfg config.SiteConfig) SiteProfile {
	return SiteProfile{
		BaseURL:           cfg.BaseURL,
		ContainerSelector: cfg.ContainerSelector,
		TitleSelector:     cfg.TitleSelector,
		NavSelector:       cfg.NavSelector,
		PrevLabel:         cfg.PrevLabel,
		NextLabel:         cfg.NextLabel,
		DefaultTitle:      cfg.DefaultTitle,
		RemoveSelectors:   cfg.RemoveSelectors,
	}
}

// Result 提取结果
type Result struct {
	Title   string
	Body    string // 清理后的正文容器内部 HTML
	PrevURL string // 空串表示没有上一章
	NextURL string
}

// Extractor 从章节页面中取出标题、正文和前后章链接
type Extractor struct {
	profile SiteProfile
	base    *url.URL
	filter  *Filter
}

// New 创建提取器
func New(profile SiteProfile, filter *Filter) (*Extractor, error) {
	base, err := url.Parse(profile.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site base url: %w", err)
	}
	if profile.DefaultTitle == "" {
		profile.DefaultTitle = "Chapter"
	}
	return &Extractor{profile: profile, base: base, filter: filter}, nil
}

// Extract 解析页面。找不到正文容器时返回 EXTRACTION_ERROR。
func (e *Extractor) Extract(markup string) (*Result, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, chapter.NewError(chapter.KindExtraction, chapter.MsgNoContent, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	container := doc.Find(e.profile.ContainerSelector).First()
	if container.Length() == 0 {
		return nil, chapter.ExtractionError(chapter.MsgNoContent)
	}

	result := &Result{
		Title: strings.TrimSpace(doc.Find(e.profile.TitleSelector).First().Text()),
	}
	if result.Title == "" {
		result.Title = e.profile.DefaultTitle
	}

	// 导航链接可能位于容器内部，必须在清理之前解析
	result.PrevURL = e.navLink(doc, e.profile.PrevLabel)
	result.NextURL = e.navLink(doc, e.profile.NextLabel)

	for _, sel := range e.profile.RemoveSelectors {
		container.Find(sel).Remove()
	}
	container.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return e.filter.Match(s.Text())
	}).Remove()

	body, err := container.Html()
	if err != nil {
		return nil, chapter.NewError(chapter.KindExtraction, chapter.MsgNoContent, err)
	}
	result.Body = body

	return result, nil
}

func (e *Extractor) navLink(doc *goquery.Document, label string) string {
	if label == "" {
		return ""
	}

	var href string
	doc.Find(e.profile.NavSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !fuzzy.Match(label, text) {
			return true
		}
		if h, ok := s.Attr("href"); ok {
			href = h
		}
		return false
	})
	if href == "" {
		return ""
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}
