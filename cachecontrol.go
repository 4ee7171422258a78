package httpcache

import "net/http"

// CacheControlHeader is the canonical header name this module reads and
// writes Cache-Control directives under.
const CacheControlHeader = "Cache-Control"

// CacheControl is a thin view over a header's raw Cache-Control values.
// Directive lookup goes through headerutil's substring-scan primitives
// rather than a tokenizing parser: directive matching is a plain substring
// search (see tryParseTimeSpan), so there is nothing a token parser would
// buy here that contains/tryParseTimeSpan don't already give.
type CacheControl []string

// ParseCacheControl returns a CacheControl over h's Cache-Control header
// values (there may be more than one Cache-Control header line).
func ParseCacheControl(h http.Header) CacheControl {
	return CacheControl(h.Values(CacheControlHeader))
}

// Has reports whether directive appears anywhere in the Cache-Control
// values, as a case-insensitive substring.
func (cc CacheControl) Has(directive string) bool {
	return contains([]string(cc), directive)
}

// Seconds returns the integer seconds argument of directive (e.g.
// "max-age=30"), and whether it was found.
func (cc CacheControl) Seconds(directive string) (int, bool) {
	return tryParseTimeSpan([]string(cc), directive)
}
