package httpcache_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gcristofol/httpcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityTagsStrongAndWeak(t *testing.T) {
	tags, err := httpcache.ParseEntityTags(`"xyzzy", W/"r2d2", ""`)
	require.NoError(t, err)
	require.Len(t, tags, 3)
	assert.Equal(t, httpcache.EntityTag{Tag: "xyzzy"}, tags[0])
	assert.Equal(t, httpcache.EntityTag{Tag: "r2d2", Weak: true}, tags[1])
	assert.Equal(t, httpcache.EntityTag{Tag: ""}, tags[2])
}

func TestEntityTagWeakMatchIgnoresWeakness(t *testing.T) {
	strong := httpcache.EntityTag{Tag: "E2"}
	weak := httpcache.EntityTag{Tag: "E2", Weak: true}

	assert.True(t, strong.WeakMatch(weak))
	assert.True(t, weak.WeakMatch(strong))
	assert.False(t, strong.WeakMatch(httpcache.EntityTag{Tag: "E3"}))
}

func TestWeakIfNoneMatchTagMatchesStrongCachedETag(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("If-None-Match", `W/"E2"`)

	cachedHeader := http.Header{}
	cachedHeader.Set("ETag", `"E2"`)

	ok, reason := httpcache.ContentIsNotModified(req, cachedHeader)
	assert.True(t, ok)
	assert.Equal(t, httpcache.DiagNotModifiedIfNoneMatchMatched, reason)
}
