package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/internal/chapter"
	"github.com/nerdneilsfield/go-chapter-translator/internal/stream"
)

type recordingView struct {
	types []stream.Type
	done  bool
}

func (v *recordingView) Event(rec *stream.Record, _ *stream.State) {
	v.types = append(v.types, rec.Type)
}
func (v *recordingView) Done(*stream.State) { v.done = true }

func ndjsonServer(t *testing.T, write func(em *stream.Emitter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/translate-chapter", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"url":"https://www.69shuba.com/txt/1/2"}`, string(body))
		w.Header().Set("Content-Type", "application/x-ndjson")
		write(stream.NewEmitter(w, "1", "2"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchChapterFoldsStream(t *testing.T) {
	srv := ndjsonServer(t, func(em *stream.Emitter) {
		_ = em.Status("Fetching chapter content...")
		_ = em.Progress(10)
		_ = em.Metadata(stream.NewMetadata("Chapter 2", "https://www.69shuba.com/txt/1/1", ""))
		_ = em.Content("<p>One</p>\n")
		_ = em.Content("<p>Two</p>\n")
		_ = em.Complete()
	})

	view := &recordingView{}
	state, err := fetchChapter(context.Background(), srv.Client(), srv.URL+"/", "https://www.69shuba.com/txt/1/2", view)
	require.NoError(t, err)

	assert.True(t, view.done)
	assert.Equal(t, "Chapter 2", state.Title)
	assert.Equal(t, "https://www.69shuba.com/txt/1/1", state.PrevURL)
	assert.Equal(t, "<p>One</p>\n<p>Two</p>\n", state.Body)
	assert.Equal(t, 100, state.Progress)
	assert.Equal(t, stream.TypeComplete, view.types[len(view.types)-1])
}

func TestFetchChapterErrorEvent(t *testing.T) {
	srv := ndjsonServer(t, func(em *stream.Emitter) {
		_ = em.Status("Fetching chapter content...")
		_ = em.Error("No content found")
	})

	_, err := fetchChapter(context.Background(), srv.Client(), srv.URL, "https://www.69shuba.com/txt/1/2", nopView{})
	require.Error(t, err)
	assert.Equal(t, "No content found", err.Error())
}

func TestFetchChapterTruncatedStream(t *testing.T) {
	srv := ndjsonServer(t, func(em *stream.Emitter) {
		_ = em.Status("Fetching chapter content...")
	})

	_, err := fetchChapter(context.Background(), srv.Client(), srv.URL, "https://www.69shuba.com/txt/1/2", nopView{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before completion")
}

func TestFetchChapterBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid or missing URL"}`))
	}))
	defer srv.Close()

	_, err := fetchChapter(context.Background(), srv.Client(), srv.URL, "https://www.69shuba.com/txt/1/2", nopView{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Invalid or missing URL")
}

func TestHeaderLine(t *testing.T) {
	assert.Equal(t, "(untitled)", headerLine("", 20))
	assert.Equal(t, "Chapter 1", headerLine("Chapter 1", 20))
	// 每个汉字占两列
	assert.Equal(t, "第一...", headerLine("第一章 归来之日", 8))
}

func TestRenderDocument(t *testing.T) {
	var buf bytes.Buffer
	renderDocument(&buf, &chapter.Document{
		Key:            "https://www.69shuba.com/txt/1/2",
		Title:          "Chapter 2",
		TranslatedBody: "<p>" + strings.Repeat("x", 200) + "</p>\n",
		NextKey:        chapter.OptionalKey("https://www.69shuba.com/txt/1/3"),
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "https://www.69shuba.com/txt/1/2")
	assert.Contains(t, out, "Chapter 2")
	assert.Contains(t, out, "https://www.69shuba.com/txt/1/3")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("x", 100))
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand("1.2.3", "abc", "today")

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "fetch", "cache", "version"})

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "chaptertrans 1.2.3 (commit abc, built today)\n", out.String())
}
