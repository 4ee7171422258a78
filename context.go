package httpcache

import (
	"context"
	"time"
)

// varyByQueryKeysContextKey is the context key under which the query keys a
// response varies by are published, read back in FinalizeHeaders. The keys
// are read from the context of the request the Middleware itself received,
// so they must be attached before the request reaches the Middleware (e.g.
// by an outer handler). A handler wrapped by the Middleware cannot add them:
// a request it derives with a new context is not seen by the Middleware.
type varyByQueryKeysContextKey struct{}

// WithVaryByQueryKeys attaches keys to ctx so that a later FinalizeHeaders
// call on the same request records them as part of the Vary rules. A
// single key of "*" means "all query keys."
func WithVaryByQueryKeys(ctx context.Context, keys ...string) context.Context {
	return context.WithValue(ctx, varyByQueryKeysContextKey{}, keys)
}

// varyByQueryKeysFromContext returns the keys attached by
// WithVaryByQueryKeys, if any.
func varyByQueryKeysFromContext(ctx context.Context) []string {
	keys, _ := ctx.Value(varyByQueryKeysContextKey{}).([]string)
	return keys
}

// RequestContext carries per-request mutable state through the middleware
// pipeline. It is owned exclusively by the request that created it and is
// discarded once that request's response completes.
type RequestContext struct {
	BaseKey string

	CachedEntry            *CachedEntry
	CachedResponse         *CachedResponse
	CachedEntryAge         time.Duration
	CachedVaryByRules      *CachedVaryByRules
	CachedResponseValidFor time.Duration

	VariantStorageKey string

	ResponseTime         time.Time
	ResponseExpires      time.Time
	ResponseMaxAge       *int
	ResponseSharedMaxAge *int

	ShouldCacheResponse bool
	ResponseStarted     bool

	Capture *CaptureStream
}

// newRequestContext builds an empty RequestContext for a newly arriving
// request, stamping ResponseTime from Clock.
func newRequestContext(baseKey string) *RequestContext {
	return &RequestContext{
		BaseKey:      baseKey,
		ResponseTime: Clock(),
	}
}
