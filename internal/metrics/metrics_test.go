package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	RecordCacheLookup("hit")
	assert.Equal(t, before+1, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))

	tokens := testutil.ToFloat64(BackendTokens.WithLabelValues("test", "in"))
	RecordBackendCall("test", "ok", 1.5, 10, 0)
	assert.Equal(t, tokens+10, testutil.ToFloat64(BackendTokens.WithLabelValues("test", "in")))
	assert.Equal(t, float64(0), testutil.ToFloat64(BackendTokens.WithLabelValues("test", "out")))

	padded := testutil.ToFloat64(PaddedParagraphs)
	RecordPadding(0)
	RecordPadding(2)
	assert.Equal(t, padded+2, testutil.ToFloat64(PaddedParagraphs))
}
