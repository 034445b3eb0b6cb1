package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerdneilsfield/go-chapter-translator/internal/config"
	"github.com/nerdneilsfield/go-chapter-translator/pkg/providers/stats"
)

func TestCreateProvider(t *testing.T) {
	f := New()
	assert.Equal(t, []string{"compat", "deepl", "gemini", "google", "openai"}, f.Registry().List())

	for _, name := range []string{"openai", "compat", "google", "deepl"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.NewDefaultConfig().Translation
			cfg.Provider = name
			cfg.APIKey = "k"

			p, err := f.CreateProvider(cfg)
			require.NoError(t, err)
			assert.Equal(t, name, p.GetName())
			_, wrapped := p.Unwrap().(*stats.StatisticsMiddleware)
			assert.False(t, wrapped)
			assert.NoError(t, p.Close())
		})
	}
}

func TestCreateProviderErrors(t *testing.T) {
	f := New()

	cfg := config.NewDefaultConfig().Translation
	cfg.Provider = "babelfish"
	_, err := f.CreateProvider(cfg)
	assert.ErrorContains(t, err, "babelfish")

	// gemini 需要 API key
	cfg.Provider = "gemini"
	cfg.APIKey = ""
	_, err = f.CreateProvider(cfg)
	assert.Error(t, err)
}
