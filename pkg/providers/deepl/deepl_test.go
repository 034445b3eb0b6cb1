package deepl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers"
)

func TestProvider_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key k", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, []string{"一", "二"}, r.PostForm["text"])
		assert.Equal(t, "ZH", r.PostForm.Get("source_lang"))
		assert.Equal(t, "EN-US", r.PostForm.Get("target_lang"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translations":[
			{"detected_source_language":"ZH","text":"One"},
			{"detected_source_language":"ZH","text":"Two"}]}`))
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIKey = "k"
	config.APIEndpoint = server.URL

	resp, err := New(config).Translate(context.Background(), &providers.ProviderRequest{
		Text:           "一\n\n二",
		SourceLanguage: "Chinese",
		TargetLanguage: "English",
	})
	require.NoError(t, err)
	assert.Equal(t, "One\n\nTwo", resp.Text)
	assert.Equal(t, "ZH", resp.Metadata["detected_source"])
}

func TestProvider_TranslateQuota(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(456)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.APIEndpoint = server.URL

	_, err := New(config).Translate(context.Background(), &providers.ProviderRequest{Text: "x", TargetLanguage: "EN"})
	assert.EqualError(t, err, "quota exceeded")
}

func TestFreeEndpoint(t *testing.T) {
	config := DefaultConfig()
	config.APIKey = "abc:fx"
	assert.Equal(t, "https://api-free.deepl.com/v2", New(config).config.APIEndpoint)
}

func TestNormalizeLanguageCode(t *testing.T) {
	assert.Equal(t, "ZH", normalizeLanguageCode("chinese", true))
	assert.Equal(t, "EN-US", normalizeLanguageCode("english", false))
	assert.Equal(t, "EN", normalizeLanguageCode("en", true))
	assert.Equal(t, "PT-BR", normalizeLanguageCode("pt_br", false))
}
