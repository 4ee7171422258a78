package httpcache

import (
	"net/http"
	"time"
)

// ExportCreateStorageVaryByKey exposes createStorageVaryByKey to
// httpcache_test, so external tests can compute the exact variant key a
// request resolves to without duplicating the key-derivation algorithm.
func ExportCreateStorageVaryByKey(r *http.Request, baseKey string, rules *CachedVaryByRules) string {
	return createStorageVaryByKey(r, baseKey, rules)
}

// ExportCreateBaseKey exposes createBaseKey to httpcache_test.
func ExportCreateBaseKey(r *http.Request, useCaseSensitivePaths bool) string {
	return createBaseKey(r, useCaseSensitivePaths)
}

// The Export* functions below expose otherwise-unexported headerutil.go and
// policy.go primitives to httpcache_test, which lives in the external
// httpcache_test package so it exercises the same API consumers do.

func ExportTryParseDate(s string) (time.Time, bool) { return tryParseDate(s) }

func ExportFormatDate(t time.Time) string { return formatDate(t) }

func ExportTryParseTimeSpan(values []string, directive string) (int, bool) {
	return tryParseTimeSpan(values, directive)
}

func ExportContains(values []string, token string) bool { return contains(values, token) }

func ExportGetOrderCasingNormalizedStringValues(values []string) []string {
	return getOrderCasingNormalizedStringValues(values)
}

func ExportIsRequestCacheable(r *http.Request) (bool, string) { return isRequestCacheable(r) }

func ExportIsResponseCacheable(r *http.Request, header http.Header, statusCode int, responseTime time.Time) (bool, string) {
	return isResponseCacheable(r, header, statusCode, responseTime)
}

func ExportIsCachedEntryFresh(cachedHeader http.Header, age time.Duration, requestHeader http.Header, responseTime, expires time.Time, hasExpires bool) (bool, string) {
	return isCachedEntryFresh(cachedHeader, age, requestHeader, responseTime, expires, hasExpires)
}
