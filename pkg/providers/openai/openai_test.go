package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

func TestProvider_Translate(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "He left.\n\nThe tree remained."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18}
		}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIKey = "test-key"
	config.APIEndpoint = server.URL
	provider := New(config)

	resp, err := provider.Translate(context.Background(), &providers.ProviderRequest{
		Text:           "他走了。\n\n树还在。",
		SourceLanguage: "Chinese",
		TargetLanguage: "English",
	})
	require.NoError(t, err)

	assert.Equal(t, "He left.\n\nThe tree remained.", resp.Text)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 6, resp.TokensOut)
	assert.Equal(t, "openai", provider.GetName())

	assert.Equal(t, "gpt-4o-mini", got["model"])
	messages := got["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].(string)
	assert.Contains(t, content, "Translate the following Chinese text to English")
	assert.Contains(t, content, "他走了。\n\n树还在。")
}

func TestProvider_TranslateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "rate_limit"}}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIKey = "test-key"
	config.APIEndpoint = server.URL

	_, err := New(config).Translate(context.Background(), &providers.ProviderRequest{Text: "你好"})
	require.Error(t, err)

	var perr *providers.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, providers.CodeRateLimit, perr.Code)
	assert.True(t, perr.IsRetryable())
}
