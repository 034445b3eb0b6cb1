package chapter

import (
	"regexp"
	"strings"
	"time"
)

// Key 章节的规范来源 URL，作为缓存的唯一标识
type Key string

// String 返回 URL 字符串
func (k Key) String() string {
	return string(k)
}

// Document 已完整翻译的章节
type Document struct {
	Key            Key       `json:"chapterUrl"`
	Title          string    `json:"chapterTitle"`
	TranslatedBody string    `json:"translatedContent"`
	PrevKey        *Key      `json:"prevChapter"`
	NextKey        *Key      `json:"nextChapter"`
	BookID         string    `json:"bookNumber"`
	ChapterID      string    `json:"chapterNumber"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SameContent 比较两份文档的内容字段，忽略时间戳
func (d *Document) SameContent(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.Key == other.Key &&
		d.Title == other.Title &&
		d.TranslatedBody == other.TranslatedBody &&
		keyEqual(d.PrevKey, other.PrevKey) &&
		keyEqual(d.NextKey, other.NextKey) &&
		d.BookID == other.BookID &&
		d.ChapterID == other.ChapterID
}

// PrevURL 返回上一章 URL，不存在时为空串
func (d *Document) PrevURL() string {
	return keyString(d.PrevKey)
}

// NextURL 返回下一章 URL，不存在时为空串
func (d *Document) NextURL() string {
	return keyString(d.NextKey)
}

// OptionalKey 空串返回 nil
func OptionalKey(url string) *Key {
	if url == "" {
		return nil
	}
	k := Key(url)
	return &k
}

func keyString(k *Key) string {
	if k == nil {
		return ""
	}
	return string(*k)
}

func keyEqual(a, b *Key) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

var txtPathPattern = regexp.MustCompile(`/txt/(\d+)/(\d+)`)

// IDsFromURL 从 /txt/<book>/<chapter> 形式的路径中取出书号与章节号
func IDsFromURL(url string) (bookID, chapterID string, ok bool) {
	m := txtPathPattern.FindStringSubmatch(url)
	if len(m) < 3 {
		return "", "", false
	}
	return m[1], m[2], true
}

// Paragraph 把一段已清理的文本包装为段落片段
func Paragraph(text string) string {
	return "<p>" + text + "</p>\n"
}

// EmptyParagraph 译文缺失时的占位段落
const EmptyParagraph = "<p></p>\n"

// JoinFragments 拼接段落片段
func JoinFragments(fragments []string) string {
	return strings.Join(fragments, "")
}
