package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/internal/extractor"
)

func newTestSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	f, err := extractor.NewFilter([]string{"ps", "作者", "本章完", "感谢"})
	require.NoError(t, err)
	return New(f)
}

func TestSegment(t *testing.T) {
	s := newTestSegmenter(t)

	testCases := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "paragraphs with sponsor note",
			body: `<p>ps: sponsor message</p><p>正文第一句。</p><p>正文第二句。</p>`,
			want: []string{"正文第一句。", "正文第二句。"},
		},
		{
			name: "whitespace paragraphs dropped",
			body: "<p>  甲  </p><p>\n\t</p><p>乙</p>",
			want: []string{"甲", "乙"},
		},
		{
			name: "br separated text nodes",
			body: "\n&emsp;&emsp;第一行<br>\n&emsp;&emsp;第二行<br>\n感谢书友的打赏<br>第三行",
			want: []string{"第一行", "第二行", "第三行"},
		},
		{
			name: "nested text falls back to blank lines",
			body: "<div>第一段\n\n第二段\n\n作者：某某</div>",
			want: []string{"第一段", "第二段"},
		},
		{
			name: "all paragraphs filtered falls back",
			body: "<p>本章完</p>剩下的文字",
			want: []string{"剩下的文字"},
		},
		{
			name: "empty",
			body: "",
			want: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Segment(tc.body))
		})
	}
}

func TestSegmentNeverEmpty(t *testing.T) {
	s := newTestSegmenter(t)
	for _, seg := range s.Segment("<p>a</p><p> </p><p></p><p>b</p>") {
		assert.NotEmpty(t, seg)
	}
}
