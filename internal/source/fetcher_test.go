package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
)

func gbk(t *testing.T, s string) []byte {
	t.Helper()
	b, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestFetchDecodesGBK(t *testing.T) {
	page := `<div class="txtnav"><h1>第一章 开始</h1>他走了。</div>`
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write(gbk(t, page))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(Options{Encoding: "gbk", UserAgent: "test-agent"})
	require.NoError(t, err)

	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, page, html)
	assert.Equal(t, "test-agent", ua)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(Options{Encoding: "utf-8", MaxRetries: 2})
	require.NoError(t, err)
	f.retry.InitialDelay = 0

	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", html)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchNotFoundIsFetchError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, err := NewHTTPFetcher(Options{Encoding: "gbk", MaxRetries: 3})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chapter.ErrFetch))
	assert.Contains(t, chapter.UserMessage(err), "Failed to fetch chapter")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupEncoding(t *testing.T) {
	enc, err := LookupEncoding("UTF-8")
	require.NoError(t, err)
	assert.Nil(t, enc)

	enc, err = LookupEncoding("gb18030")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	_, err = LookupEncoding("klingon")
	assert.Error(t, err)
}
