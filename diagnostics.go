package httpcache

import "log"

// DebugLogging gates debugf output. Off by default; cmd/httpcache-proxy
// flips it on from a -v flag.
var DebugLogging = false

// Diagnostic tags, emitted via debugf, observable in tests by
// asserting on log output or (in unit tests) by calling the predicate
// functions directly and checking the returned reason.
const (
	DiagGatewayTimeoutServed                   = "GatewayTimeoutServed"
	DiagNoResponseServed                       = "NoResponseServed"
	DiagCachedResponseServed                   = "CachedResponseServed"
	DiagNotModifiedServed                      = "NotModifiedServed"
	DiagNotModifiedIfNoneMatchStar             = "NotModifiedIfNoneMatchStar"
	DiagNotModifiedIfNoneMatchMatched          = "NotModifiedIfNoneMatchMatched"
	DiagNotModifiedIfUnmodifiedSinceSatisfied  = "NotModifiedIfUnmodifiedSinceSatisfied"
	DiagVaryByRulesUpdated                     = "VaryByRulesUpdated"
	DiagResponseCached                         = "ResponseCached"
	DiagResponseNotCached                      = "ResponseNotCached"
	DiagResponseContentLengthMismatchNotCached = "ResponseContentLengthMismatchNotCached"

	DiagRequestMethodNotCacheable  = "RequestMethodNotCacheable"
	DiagRequestHasAuthorization    = "RequestHasAuthorization"
	DiagRequestNoCache             = "RequestNoCache"
	DiagResponseNotPublic          = "ResponseNotPublic"
	DiagResponseNoStore            = "ResponseNoStore"
	DiagResponseNoCache            = "ResponseNoCache"
	DiagResponseHasSetCookie       = "ResponseHasSetCookie"
	DiagResponseVaryStar           = "ResponseVaryStar"
	DiagResponsePrivate            = "ResponsePrivate"
	DiagResponseStatusNotCacheable = "ResponseStatusNotCacheable"
	DiagResponseAlreadyExpired     = "ResponseAlreadyExpired"
	DiagCachedEntryStale           = "CachedEntryStale"
)

func debugf(format string, args ...interface{}) {
	if !DebugLogging {
		return
	}
	log.Printf("httpcache: "+format, args...)
}

func errorf(format string, args ...interface{}) {
	log.Printf("httpcache: error: "+format, args...)
}
