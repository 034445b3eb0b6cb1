package chapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDsFromURL(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		book    string
		chapter string
		ok      bool
	}{
		{"standard", "https://www.69shuba.com/txt/84418/40150610", "84418", "40150610", true},
		{"trailing slash", "https://www.69shuba.com/txt/1/2/", "1", "2", true},
		{"book index", "https://www.69shuba.com/book/84418.htm", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			book, chap, ok := IDsFromURL(tc.url)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.book, book)
			assert.Equal(t, tc.chapter, chap)
		})
	}
}

func TestDocumentSameContent(t *testing.T) {
	a := &Document{Key: "u", Title: "t", TranslatedBody: "<p>x</p>\n", NextKey: OptionalKey("n")}
	b := *a
	b.UpdatedAt = b.UpdatedAt.Add(1)
	assert.True(t, a.SameContent(&b))

	b.NextKey = nil
	assert.False(t, a.SameContent(&b))
	assert.Equal(t, "n", a.NextURL())
	assert.Equal(t, "", a.PrevURL())
}

func TestErrorKinds(t *testing.T) {
	backendErr := errors.New("quota exceeded")
	err := fmt.Errorf("batch 2: %w", TranslationError(backendErr))

	assert.True(t, errors.Is(err, ErrTranslation))
	assert.False(t, errors.Is(err, ErrFetch))
	assert.True(t, errors.Is(err, backendErr))
	assert.Equal(t, "quota exceeded", UserMessage(err))

	noContent := ExtractionError(MsgNoContent)
	assert.True(t, errors.Is(noContent, ErrExtraction))
	assert.Equal(t, "No content found", UserMessage(noContent))
	assert.Contains(t, noContent.Error(), string(KindExtraction))
}
