package httpcache

import (
	"net/http"
	"strings"
	"time"
)

// isRequestCacheable implements PolicyProvider's first predicate: whether
// an incoming request may be served from, or considered for, the cache.
func isRequestCacheable(r *http.Request) (bool, string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false, DiagRequestMethodNotCacheable
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		return false, DiagRequestHasAuthorization
	}

	requestCC := ParseCacheControl(r.Header)
	if requestCC.Has("no-cache") {
		return false, DiagRequestNoCache
	}
	if len(requestCC) == 0 && contains(r.Header.Values("Pragma"), "no-cache") {
		return false, DiagRequestNoCache
	}

	return true, ""
}

// isResponseCacheable implements PolicyProvider's second predicate: whether
// an upstream response, given the request that produced it, may be stored.
func isResponseCacheable(r *http.Request, header http.Header, statusCode int, responseTime time.Time) (bool, string) {
	responseCC := ParseCacheControl(header)
	requestCC := ParseCacheControl(r.Header)

	if !responseCC.Has("public") {
		return false, DiagResponseNotPublic
	}
	if responseCC.Has("no-store") || requestCC.Has("no-store") {
		return false, DiagResponseNoStore
	}
	if responseCC.Has("no-cache") {
		return false, DiagResponseNoCache
	}
	if header.Get("Set-Cookie") != "" {
		return false, DiagResponseHasSetCookie
	}
	if vary := header.Get("Vary"); strings.TrimSpace(vary) == "*" {
		return false, DiagResponseVaryStar
	}
	if responseCC.Has("private") {
		return false, DiagResponsePrivate
	}
	if statusCode != http.StatusOK {
		return false, DiagResponseStatusNotCacheable
	}

	date, hasDate := tryParseDate(header.Get("Date"))
	expires, hasExpires := tryParseDate(header.Get("Expires"))
	sMaxAge, hasSMaxAge := responseCC.Seconds("s-maxage")
	maxAge, hasMaxAge := responseCC.Seconds("max-age")

	if !hasDate {
		if !hasSMaxAge && !hasMaxAge {
			if hasExpires && !responseTime.Before(expires) {
				return false, DiagResponseAlreadyExpired
			}
		}
		return true, ""
	}

	age := responseTime.Sub(date)
	switch {
	case hasSMaxAge:
		if age >= time.Duration(sMaxAge)*time.Second {
			return false, DiagResponseAlreadyExpired
		}
	case hasMaxAge:
		if age >= time.Duration(maxAge)*time.Second {
			return false, DiagResponseAlreadyExpired
		}
	default:
		if hasExpires && !responseTime.Before(expires) {
			return false, DiagResponseAlreadyExpired
		}
	}

	return true, ""
}

// isCachedEntryFresh implements PolicyProvider's third predicate.
func isCachedEntryFresh(cachedHeader http.Header, age time.Duration, requestHeader http.Header, responseTime, expires time.Time, hasExpires bool) (bool, string) {
	requestCC := ParseCacheControl(requestHeader)
	cachedCC := ParseCacheControl(cachedHeader)

	if minFresh, ok := requestCC.Seconds("min-fresh"); ok {
		age += time.Duration(minFresh) * time.Second
	}

	if sMaxAge, ok := cachedCC.Seconds("s-maxage"); ok {
		if age >= time.Duration(sMaxAge)*time.Second {
			return false, DiagCachedEntryStale
		}
		return true, ""
	}

	cachedMaxAge, hasCachedMaxAge := cachedCC.Seconds("max-age")
	requestMaxAge, hasRequestMaxAge := requestCC.Seconds("max-age")

	var lowestMaxAge int
	hasLowest := false
	switch {
	case hasCachedMaxAge && hasRequestMaxAge:
		lowestMaxAge = min(cachedMaxAge, requestMaxAge)
		hasLowest = true
	case hasCachedMaxAge:
		lowestMaxAge = cachedMaxAge
		hasLowest = true
	case hasRequestMaxAge:
		lowestMaxAge = requestMaxAge
		hasLowest = true
	}

	if hasLowest {
		if age >= time.Duration(lowestMaxAge)*time.Second {
			if cachedCC.Has("must-revalidate") {
				return false, DiagCachedEntryStale
			}
			if maxStale, ok := requestCC.Seconds("max-stale"); ok {
				excess := age - time.Duration(lowestMaxAge)*time.Second
				if excess < time.Duration(maxStale)*time.Second {
					return true, ""
				}
			}
			return false, DiagCachedEntryStale
		}
		return true, ""
	}

	if hasExpires && !responseTime.Before(expires) {
		return false, DiagCachedEntryStale
	}

	return true, ""
}

// ContentIsNotModified reports whether a cached response may be served as
// a 304 instead of its full body, given the incoming request's
// conditional-request preconditions.
func ContentIsNotModified(r *http.Request, cachedHeader http.Header) (bool, string) {
	ifNoneMatch := r.Header.Get("If-None-Match")
	ifUnmodifiedSince := r.Header.Get("If-Unmodified-Since")

	if ifNoneMatch == "" && ifUnmodifiedSince == "" {
		return false, ""
	}

	if ifNoneMatch != "" {
		if strings.TrimSpace(ifNoneMatch) == "*" {
			return true, DiagNotModifiedIfNoneMatchStar
		}

		requested, err := ParseEntityTags(ifNoneMatch)
		if err == nil {
			cachedTag := cachedHeader.Get("ETag")
			if cachedTag != "" {
				cachedEntity, err := ParseEntityTags(cachedTag)
				if err == nil && len(cachedEntity) > 0 {
					for _, tag := range requested {
						if tag.WeakMatch(cachedEntity[0]) {
							return true, DiagNotModifiedIfNoneMatchMatched
						}
					}
				}
			}
		}

		return false, ""
	}

	threshold, ok := tryParseDate(ifUnmodifiedSince)
	if !ok {
		return false, ""
	}

	resourceTimeStr := cachedHeader.Get("Last-Modified")
	if resourceTimeStr == "" {
		resourceTimeStr = cachedHeader.Get("Date")
	}
	resourceTime, ok := tryParseDate(resourceTimeStr)
	if !ok {
		return false, ""
	}

	if !resourceTime.After(threshold) {
		return true, DiagNotModifiedIfUnmodifiedSinceSatisfied
	}

	return false, ""
}
