package extractor

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Filter 识别作者附言、章节结束语等样板段落
type Filter struct {
	re *regexp2.Regexp
}

// NewFilter 用标记列表构造过滤器，任一标记出现在文本中即视为样板
func NewFilter(markers []string) (*Filter, error) {
	parts := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		parts = append(parts, regexp2.Escape(m))
	}
	if len(parts) == 0 {
		return &Filter{}, nil
	}

	re, err := regexp2.Compile(strings.Join(parts, "|"), regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	return &Filter{re: re}, nil
}

// Match 文本是否为样板
func (f *Filter) Match(text string) bool {
	if f == nil || f.re == nil {
		return false
	}
	ok, err := f.re.MatchString(text)
	return err == nil && ok
}
