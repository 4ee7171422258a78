package httpcache

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Middleware is the caching orchestrator: on every request it decides
// whether the request may be answered from the cache, and, failing that,
// installs a CaptureStream in front of the downstream handler so a
// cacheable response can be stored once it completes.
type Middleware struct {
	next  http.Handler
	store Storage
	cfg   *config
}

// NewMiddleware wraps next with response caching backed by store.
func NewMiddleware(next http.Handler, store Storage, opts ...Option) *Middleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Middleware{next: next, store: store, cfg: cfg}
}

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	baseKey := createBaseKey(r, m.cfg.useCaseSensitivePaths)
	rc := newRequestContext(baseKey)

	if ok, reason := isRequestCacheable(r); !ok {
		debugf("%s %s not cacheable: %s", r.Method, r.URL.Path, reason)
		m.forwardNoCaching(w, r)
		return
	}

	m.tryServeFromCache(w, r, rc)
}

// forwardNoCaching handles a request that is ineligible for caching: it is
// passed straight through with no capture installed.
func (m *Middleware) forwardNoCaching(w http.ResponseWriter, r *http.Request) {
	m.next.ServeHTTP(w, r)
	debugf(DiagNoResponseServed)
}

// tryServeFromCache resolves baseKey, follows Vary indirection if present,
// and decides whether a stored response can satisfy the request.
func (m *Middleware) tryServeFromCache(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	ctx := r.Context()

	entry, found := m.lookup(ctx, rc.BaseKey)
	if found && entry.Kind == EntryKindVaryByRules {
		rc.CachedVaryByRules = entry.VaryByRules
		variantKey := createStorageVaryByKey(r, rc.BaseKey, entry.VaryByRules)
		rc.VariantStorageKey = variantKey
		entry, found = m.lookup(ctx, variantKey)
	}

	if found && entry.Kind == EntryKindResponse {
		rc.CachedEntry = entry
		rc.CachedResponse = entry.Response
	}

	if rc.CachedResponse == nil {
		if ParseCacheControl(r.Header).Has("only-if-cached") {
			m.serveGatewayTimeout(w)
			return
		}
		m.forward(w, r, rc)
		return
	}

	rc.CachedEntryAge = Clock().Sub(rc.CachedResponse.StoredAt)

	expires, hasExpires := tryParseDate(rc.CachedResponse.Header.Get("Expires"))
	fresh, reason := isCachedEntryFresh(rc.CachedResponse.Header, rc.CachedEntryAge, r.Header, Clock(), expires, hasExpires)
	if !fresh {
		debugf("%s", reason)
		m.forward(w, r, rc)
		return
	}

	if notModified, reason := ContentIsNotModified(r, rc.CachedResponse.Header); notModified {
		m.serveNotModified(w, rc, reason)
		return
	}

	m.serveCached(w, rc)
}

// lookup performs one Storage.Get, treating a storage failure as a miss
// rather than propagating it: a broken cache backend should degrade to
// always-forward, not take the whole site down.
func (m *Middleware) lookup(ctx context.Context, key string) (*CachedEntry, bool) {
	entry, found, err := m.store.Get(ctx, key)
	if err != nil {
		errorf("storage get %q failed: %s", key, err)
		return nil, false
	}
	return entry, found
}

func (m *Middleware) serveGatewayTimeout(w http.ResponseWriter) {
	w.WriteHeader(http.StatusGatewayTimeout)
	debugf(DiagGatewayTimeoutServed)
}

// serveNotModified writes a 304 with only the header subset RFC 7232
// calls for, no body.
func (m *Middleware) serveNotModified(w http.ResponseWriter, rc *RequestContext, reason string) {
	h := w.Header()
	for _, name := range []string{"Cache-Control", "Content-Location", "Date", "ETag", "Expires", "Vary"} {
		if v := rc.CachedResponse.Header.Values(name); len(v) > 0 {
			for _, value := range v {
				h.Add(name, value)
			}
		}
	}
	w.WriteHeader(http.StatusNotModified)
	debugf(reason)
	debugf(DiagNotModifiedServed)
}

// serveCached replays a stored response verbatim, stamping a fresh Age.
func (m *Middleware) serveCached(w http.ResponseWriter, rc *RequestContext) {
	h := w.Header()
	for name, values := range rc.CachedResponse.Header {
		for _, v := range values {
			h.Add(name, v)
		}
	}

	age := Clock().Sub(rc.CachedResponse.StoredAt)
	if age < 0 {
		age = 0
	}
	h.Set("Age", strconv.FormatInt(int64(age/time.Second), 10))

	w.WriteHeader(rc.CachedResponse.StatusCode)
	if _, err := io.Copy(w, rc.CachedResponse.Body.NewReader()); err != nil {
		errorf("error writing cached body: %s", err)
	}
	debugf(DiagCachedResponseServed)
}

// forward installs the capture stream and calls the downstream handler.
// finalizeHeaders is hooked off the wrapping ResponseWriter, since it must
// run at the moment of the first body byte — often the only point at which
// the downstream handler's final header set is actually settled; it is
// called here only if the handler wrote nothing. finalizeBody runs here
// once the downstream handler has returned.
func (m *Middleware) forward(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	cw := &cacheResponseWriter{
		ResponseWriter: w,
		mw:             m,
		r:              r,
		rc:             rc,
		statusCode:     http.StatusOK,
	}
	m.next.ServeHTTP(cw, r)
	cw.ensureHeadersFinalized(cw.statusCode)
	m.finalizeBody(r.Context(), cw)
}

// cacheResponseWriter wraps the real http.ResponseWriter so the first write
// of any kind (WriteHeader or a bare Write) triggers FinalizeHeaders before
// any byte reaches the client, and so the body bytes reach the client
// before they are mirrored into the capture stream's buffer.
type cacheResponseWriter struct {
	http.ResponseWriter
	mw   *Middleware
	r    *http.Request
	rc   *RequestContext

	statusCode    int
	headerWritten bool
	capture       *CaptureStream
}

func (w *cacheResponseWriter) WriteHeader(status int) {
	w.statusCode = status
	w.ensureHeadersFinalized(status)
}

func (w *cacheResponseWriter) Write(p []byte) (int, error) {
	w.ensureHeadersFinalized(w.statusCode)
	return w.capture.Write(p)
}

// Flush passes through to the underlying ResponseWriter when it supports
// http.Flusher, preserving streaming semantics for handlers that flush
// incrementally.
func (w *cacheResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *cacheResponseWriter) ensureHeadersFinalized(status int) {
	if w.headerWritten {
		return
	}
	w.headerWritten = true
	w.statusCode = status
	w.mw.finalizeHeaders(w.r, w.rc, w.Header(), status)
	w.ResponseWriter.WriteHeader(status)
	w.capture = InstallCapture(w.rc, w.ResponseWriter, w.mw.cfg.maximumBodySize)
}

// finalizeHeaders runs once, at the moment the first response byte is
// about to leave the process: it decides cacheability, the stored
// validity window, and the Vary rules from the now-final response headers.
func (m *Middleware) finalizeHeaders(r *http.Request, rc *RequestContext, header http.Header, status int) {
	if header.Get("Date") == "" {
		header.Set("Date", formatDate(rc.ResponseTime))
	}
	rc.ResponseExpires, _ = tryParseDate(header.Get("Expires"))
	cc := ParseCacheControl(header)
	if maxAge, ok := cc.Seconds("max-age"); ok {
		rc.ResponseMaxAge = &maxAge
	}
	if sMaxAge, ok := cc.Seconds("s-maxage"); ok {
		rc.ResponseSharedMaxAge = &sMaxAge
	}

	ok, reason := isResponseCacheable(r, header, status, rc.ResponseTime)
	rc.ShouldCacheResponse = ok
	if !ok {
		debugf("%s", reason)
	}

	rc.CachedResponseValidFor = m.cachedResponseValidFor(rc)

	m.updateVaryRules(r, rc, header)

	rc.CachedResponse = &CachedResponse{
		StatusCode: status,
		Header:     header.Clone(),
		StoredAt:   rc.ResponseTime,
	}
	rc.ResponseStarted = true
}

// cachedResponseValidFor applies the freshness-lifetime preference order to
// the values finalizeHeaders parsed onto the context: s-maxage, then
// max-age, then Expires-minus-now, then the configured default.
func (m *Middleware) cachedResponseValidFor(rc *RequestContext) time.Duration {
	if rc.ResponseSharedMaxAge != nil {
		return time.Duration(*rc.ResponseSharedMaxAge) * time.Second
	}
	if rc.ResponseMaxAge != nil {
		return time.Duration(*rc.ResponseMaxAge) * time.Second
	}
	if !rc.ResponseExpires.IsZero() {
		if d := rc.ResponseExpires.Sub(rc.ResponseTime); d > 0 {
			return d
		}
		return 0
	}
	return m.cfg.defaultValidity
}

// updateVaryRules normalizes the response Vary header and the request's
// VaryByQueryKeys feature, and either reuses the existing rule set (and
// its key prefix) or mints a new one.
func (m *Middleware) updateVaryRules(r *http.Request, rc *RequestContext, header http.Header) {
	normalizedHeaders := normalizeCommaSeparatedNames(header.Values("Vary"))
	normalizedQueryKeys := dedupeSorted(getOrderCasingNormalizedStringValues(varyByQueryKeysFromContext(r.Context())))

	if len(normalizedHeaders) == 0 && len(normalizedQueryKeys) == 0 {
		return
	}

	prefix := newVaryByKeyPrefix()
	if rc.CachedVaryByRules != nil &&
		reflect.DeepEqual(rc.CachedVaryByRules.HeaderNames, normalizedHeaders) &&
		reflect.DeepEqual(rc.CachedVaryByRules.QueryKeys, normalizedQueryKeys) {
		prefix = rc.CachedVaryByRules.KeyPrefix
	}

	rules := &CachedVaryByRules{
		KeyPrefix:   prefix,
		HeaderNames: normalizedHeaders,
		QueryKeys:   normalizedQueryKeys,
	}
	rc.CachedVaryByRules = rules
	rc.VariantStorageKey = createStorageVaryByKey(r, rc.BaseKey, rules)

	entry := &CachedEntry{Kind: EntryKindVaryByRules, VaryByRules: rules}
	if err := m.store.Set(r.Context(), rc.BaseKey, entry, rc.CachedResponseValidFor); err != nil {
		errorf("storing vary rules for %q failed: %s", rc.BaseKey, err)
		return
	}
	debugf(DiagVaryByRulesUpdated)
}

// finalizeBody runs after the downstream handler has returned and the
// capture stream has seen every body byte, storing the captured response
// if it's still eligible for caching.
func (m *Middleware) finalizeBody(ctx context.Context, cw *cacheResponseWriter) {
	rc := cw.rc

	if !rc.ShouldCacheResponse {
		debugf(DiagResponseNotCached)
		return
	}
	if cw.capture == nil || !cw.capture.BufferingEnabled() {
		debugf(DiagResponseNotCached)
		return
	}

	body, err := cw.capture.Finalize()
	if err != nil {
		debugf(DiagResponseNotCached)
		return
	}

	if declared := rc.CachedResponse.Header.Get("Content-Length"); declared != "" {
		if n, err := strconv.ParseInt(declared, 10, 64); err == nil && n != body.Size() {
			debugf(DiagResponseContentLengthMismatchNotCached)
			return
		}
	}

	rc.CachedResponse.Body = body

	key := rc.BaseKey
	if rc.VariantStorageKey != "" {
		key = rc.VariantStorageKey
	}

	entry := &CachedEntry{Kind: EntryKindResponse, Response: rc.CachedResponse}
	if err := m.store.Set(ctx, key, entry, rc.CachedResponseValidFor); err != nil {
		errorf("storing response for %q failed: %s", key, err)
		return
	}
	debugf(DiagResponseCached)
}

// normalizeCommaSeparatedNames splits each value on commas, trims, upper
// cases, sorts and dedupes — the Vary-header-specific normalization that
// feeds getOrderCasingNormalizedStringValues's plain-slice form.
func normalizeCommaSeparatedNames(values []string) []string {
	var names []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				names = append(names, asciiUpper(part))
			}
		}
	}
	return dedupeSorted(getOrderCasingNormalizedStringValues(names))
}

func dedupeSorted(values []string) []string {
	if len(values) < 2 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// varyByKeyPrefixAlphabet and newVaryByKeyPrefix mint a short random id
// used to namespace a Vary rule set's variant keys. Uniqueness only has to
// hold per base key, so math/rand is plenty.
const varyByKeyPrefixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func newVaryByKeyPrefix() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = varyByKeyPrefixAlphabet[rand.Intn(len(varyByKeyPrefixAlphabet))]
	}
	return string(b)
}

// InstallCapture attaches a CaptureStream to rc, wrapping next. Installing a
// second capture stream on the same RequestContext is a programming error,
// so this panics rather than returning an error, failing fast instead of
// silently discarding the first capture.
func InstallCapture(rc *RequestContext, next io.Writer, maximumBodySize int64) *CaptureStream {
	if rc.Capture != nil {
		panic(ErrCaptureAlreadyInstalled)
	}
	cs, err := NewCaptureStream(next, maximumBodySize)
	if err != nil {
		panic(err)
	}
	rc.Capture = cs
	return cs
}
