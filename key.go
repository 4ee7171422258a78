package httpcache

import (
	"net/http"
	"strings"
)

// Separators used to delimit fields and segments inside a variant storage
// key. Both are non-printable control bytes, which net/http does not accept
// in a header name or header value. Query keys and values are used as
// decoded by net/url, so a percent-encoded control byte (e.g. %1F) in the
// query string appears in the key as a literal separator byte.
const (
	keyFieldSeparator   = "\x1f" // C1
	keySegmentSeparator = "\x1e" // C2
)

// allQueryKeysWildcard, used as a CachedVaryByRules query key, means "every
// current query key and value participates in key derivation."
const allQueryKeysWildcard = "*"

// createBaseKey derives the resource-level key a request maps to before any
// Vary indirection is applied: "{METHOD}\n{PATH}", with the path
// ASCII-uppercased unless useCaseSensitivePaths is set.
func createBaseKey(r *http.Request, useCaseSensitivePaths bool) string {
	path := r.URL.Path
	if !useCaseSensitivePaths {
		path = asciiUpper(path)
	}
	return r.Method + "\n" + path
}

// createStorageVaryByKey derives the variant key for a request given the
// Vary rules recorded under its base key. Header names and query keys are
// sorted ascending and case-folded to upper before concatenation; values
// are preserved verbatim and, when a name repeats, joined with
// keyFieldSeparator.
func createStorageVaryByKey(r *http.Request, baseKey string, rules *CachedVaryByRules) string {
	var b strings.Builder

	headerNames := getOrderCasingNormalizedStringValues(rules.HeaderNames)
	queryKeys := getOrderCasingNormalizedStringValues(rules.QueryKeys)
	// A single-element list comes back from the normalizer unchanged.
	for i := range headerNames {
		headerNames[i] = asciiUpper(headerNames[i])
	}
	for i := range queryKeys {
		queryKeys[i] = asciiUpper(queryKeys[i])
	}

	b.WriteString(baseKey)
	b.WriteString(keyFieldSeparator)
	b.WriteString(rules.KeyPrefix)
	b.WriteString(keySegmentSeparator)

	b.WriteString("H")
	for _, name := range headerNames {
		b.WriteString(keyFieldSeparator)
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strings.Join(r.Header.Values(name), keyFieldSeparator))
	}
	b.WriteString(keyFieldSeparator)
	b.WriteString(keySegmentSeparator)

	b.WriteString("Q")
	for _, key := range queryKeys {
		if key == allQueryKeysWildcard {
			b.WriteString(queryAllKeysFragment(r))
			continue
		}
		b.WriteString(keyFieldSeparator)
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(strings.Join(r.URL.Query()[originalCaseQueryKey(r, key)], keyFieldSeparator))
	}
	b.WriteString(keyFieldSeparator)

	return b.String()
}

// originalCaseQueryKey finds the query key as it actually appears on the
// request (case-insensitively matching the normalized, upper-cased name),
// since url.Values lookups are case-sensitive.
func originalCaseQueryKey(r *http.Request, normalized string) string {
	for k := range r.URL.Query() {
		if asciiUpper(k) == normalized {
			return k
		}
	}
	return normalized
}

// queryAllKeysFragment renders every current query key/value pair, sorted
// by key, for the "*" wildcard rule.
func queryAllKeysFragment(r *http.Request) string {
	query := r.URL.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sortStrings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(keyFieldSeparator)
		b.WriteString(asciiUpper(k))
		b.WriteString("=")
		b.WriteString(strings.Join(query[k], keyFieldSeparator))
	}
	return b.String()
}
