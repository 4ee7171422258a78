package httpcache_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gcristofol/httpcache"
	"github.com/stretchr/testify/assert"
)

func TestIsRequestCacheableRejectsNonGetHead(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "http://example.org/test", nil)
		ok, reason := httpcache.ExportIsRequestCacheable(req)
		assert.False(t, ok, "method %s should not be cacheable", method)
		assert.Equal(t, httpcache.DiagRequestMethodNotCacheable, reason)
	}
}

func TestIsRequestCacheableRejectsAuthorization(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("Authorization", "Bearer token")
	ok, reason := httpcache.ExportIsRequestCacheable(req)
	assert.False(t, ok)
	assert.Equal(t, httpcache.DiagRequestHasAuthorization, reason)
}

func TestIsRequestCacheableRejectsNoCacheControl(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("Cache-Control", "no-cache")
	ok, _ := httpcache.ExportIsRequestCacheable(req)
	assert.False(t, ok)
}

func TestIsRequestCacheableRejectsNoCachePragmaWhenNoCacheControl(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("Pragma", "no-cache")
	ok, _ := httpcache.ExportIsRequestCacheable(req)
	assert.False(t, ok)
}

func TestIsRequestCacheableAcceptsPlainGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	ok, _ := httpcache.ExportIsRequestCacheable(req)
	assert.True(t, ok)
}

func TestIsResponseCacheableRequiresPublic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	header := http.Header{}
	ok, reason := httpcache.ExportIsResponseCacheable(req, header, http.StatusOK, testTime)
	assert.False(t, ok)
	assert.Equal(t, httpcache.DiagResponseNotPublic, reason)
}

func TestIsResponseCacheableRejectsSetCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	header := http.Header{}
	header.Set("Cache-Control", "public")
	header.Set("Set-Cookie", "sid=abc")
	ok, reason := httpcache.ExportIsResponseCacheable(req, header, http.StatusOK, testTime)
	assert.False(t, ok)
	assert.Equal(t, httpcache.DiagResponseHasSetCookie, reason)
}

func TestIsResponseCacheableRejectsVaryStar(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	header := http.Header{}
	header.Set("Cache-Control", "public")
	header.Set("Vary", "*")
	ok, reason := httpcache.ExportIsResponseCacheable(req, header, http.StatusOK, testTime)
	assert.False(t, ok)
	assert.Equal(t, httpcache.DiagResponseVaryStar, reason)
}

func TestIsResponseCacheableRejectsNonOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	header := http.Header{}
	header.Set("Cache-Control", "public")
	ok, reason := httpcache.ExportIsResponseCacheable(req, header, http.StatusCreated, testTime)
	assert.False(t, ok)
	assert.Equal(t, httpcache.DiagResponseStatusNotCacheable, reason)
}

func TestIsResponseCacheableAlreadyExpired(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	header := http.Header{}
	header.Set("Cache-Control", "public")
	header.Set("Expires", httpcache.ExportFormatDate(testTime.Add(-time.Minute)))
	ok, reason := httpcache.ExportIsResponseCacheable(req, header, http.StatusOK, testTime)
	assert.False(t, ok)
	assert.Equal(t, httpcache.DiagResponseAlreadyExpired, reason)
}

func TestIsResponseCacheableAcceptsPublicWithMaxAge(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	header := http.Header{}
	header.Set("Cache-Control", "public, max-age=60")
	ok, _ := httpcache.ExportIsResponseCacheable(req, header, http.StatusOK, testTime)
	assert.True(t, ok)
}

func TestIsCachedEntryFreshStaleAtSharedMaxAge(t *testing.T) {
	cachedHeader := http.Header{}
	cachedHeader.Set("Cache-Control", "public, s-maxage=30")
	requestHeader := http.Header{}

	fresh, reason := httpcache.ExportIsCachedEntryFresh(cachedHeader, 30*time.Second, requestHeader, testTime, time.Time{}, false)
	assert.False(t, fresh)
	assert.Equal(t, httpcache.DiagCachedEntryStale, reason)
}

func TestIsCachedEntryFreshBelowSharedMaxAge(t *testing.T) {
	cachedHeader := http.Header{}
	cachedHeader.Set("Cache-Control", "public, s-maxage=30")
	requestHeader := http.Header{}

	fresh, _ := httpcache.ExportIsCachedEntryFresh(cachedHeader, 29*time.Second, requestHeader, testTime, time.Time{}, false)
	assert.True(t, fresh)
}

func TestIsCachedEntryFreshSharedMaxAgeOverridesMaxAge(t *testing.T) {
	cachedHeader := http.Header{}
	cachedHeader.Set("Cache-Control", "public, max-age=600, s-maxage=10")
	requestHeader := http.Header{}

	// age is within max-age but beyond s-maxage: s-maxage wins for the
	// shared-cache path.
	fresh, reason := httpcache.ExportIsCachedEntryFresh(cachedHeader, 20*time.Second, requestHeader, testTime, time.Time{}, false)
	assert.False(t, fresh)
	assert.Equal(t, httpcache.DiagCachedEntryStale, reason)
}

func TestIsCachedEntryFreshMaxStaleExtendsFreshness(t *testing.T) {
	cachedHeader := http.Header{}
	cachedHeader.Set("Cache-Control", "public, max-age=10")
	requestHeader := http.Header{}
	requestHeader.Set("Cache-Control", "max-stale=5")

	fresh, _ := httpcache.ExportIsCachedEntryFresh(cachedHeader, 12*time.Second, requestHeader, testTime, time.Time{}, false)
	assert.True(t, fresh)
}

func TestIsCachedEntryFreshMustRevalidateIgnoresMaxStale(t *testing.T) {
	cachedHeader := http.Header{}
	cachedHeader.Set("Cache-Control", "public, max-age=10, must-revalidate")
	requestHeader := http.Header{}
	requestHeader.Set("Cache-Control", "max-stale=50")

	fresh, _ := httpcache.ExportIsCachedEntryFresh(cachedHeader, 12*time.Second, requestHeader, testTime, time.Time{}, false)
	assert.False(t, fresh)
}

func TestIsCachedEntryFreshMinFreshAddsToAge(t *testing.T) {
	cachedHeader := http.Header{}
	cachedHeader.Set("Cache-Control", "public, max-age=10")
	requestHeader := http.Header{}
	requestHeader.Set("Cache-Control", "min-fresh=5")

	// Real age is 6s (fresh against max-age=10), but min-fresh=5 demands
	// at least 5s more life, pushing effective age to 11s: now stale.
	fresh, _ := httpcache.ExportIsCachedEntryFresh(cachedHeader, 6*time.Second, requestHeader, testTime, time.Time{}, false)
	assert.False(t, fresh)
}

func TestIsCachedEntryFreshFallsBackToExpires(t *testing.T) {
	cachedHeader := http.Header{}
	requestHeader := http.Header{}

	fresh, _ := httpcache.ExportIsCachedEntryFresh(cachedHeader, time.Second, requestHeader, testTime, testTime.Add(time.Minute), true)
	assert.True(t, fresh)

	stale, reason := httpcache.ExportIsCachedEntryFresh(cachedHeader, time.Second, requestHeader, testTime.Add(time.Hour), testTime.Add(time.Minute), true)
	assert.False(t, stale)
	assert.Equal(t, httpcache.DiagCachedEntryStale, reason)
}

func TestContentIsNotModifiedIfNoneMatchStar(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("If-None-Match", "*")
	ok, reason := httpcache.ContentIsNotModified(req, http.Header{})
	assert.True(t, ok)
	assert.Equal(t, httpcache.DiagNotModifiedIfNoneMatchStar, reason)
}

func TestContentIsNotModifiedIfNoneMatchNoFallthrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("If-None-Match", `"nope"`)
	req.Header.Set("If-Unmodified-Since", httpcache.ExportFormatDate(testTime))

	cachedHeader := http.Header{}
	cachedHeader.Set("ETag", `"E2"`)
	cachedHeader.Set("Last-Modified", httpcache.ExportFormatDate(testTime.Add(-time.Hour)))

	ok, _ := httpcache.ContentIsNotModified(req, cachedHeader)
	assert.False(t, ok, "a present but non-matching If-None-Match must not fall through to If-Unmodified-Since")
}

func TestContentIsNotModifiedIfUnmodifiedSince(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	req.Header.Set("If-Unmodified-Since", httpcache.ExportFormatDate(testTime))

	cachedHeader := http.Header{}
	cachedHeader.Set("Last-Modified", httpcache.ExportFormatDate(testTime.Add(-time.Hour)))

	ok, reason := httpcache.ContentIsNotModified(req, cachedHeader)
	assert.True(t, ok)
	assert.Equal(t, httpcache.DiagNotModifiedIfUnmodifiedSinceSatisfied, reason)
}

func TestContentIsNotModifiedNoPreconditionHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.org/test", nil)
	ok, _ := httpcache.ContentIsNotModified(req, http.Header{})
	assert.False(t, ok)
}
