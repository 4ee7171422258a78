package httpcache

import (
	"net/http"
	"strings"
	"time"
)

// dateLayouts lists the HTTP-date forms tryParseDate accepts, beyond the
// three net/http.ParseTime already understands (RFC 1123, RFC 850, ANSI C
// asctime). RFC 5322 dates turn up from older or hand-rolled upstreams.
var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

// tryParseDate accepts RFC 1123, RFC 850, ANSI C asctime and RFC 5322 date
// strings, tolerating leading/trailing whitespace. A timestamp with no zone
// is assumed to be UTC.
func tryParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := http.ParseTime(s); err == nil {
		return t.UTC(), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// formatDate renders t in the one form this cache ever emits: RFC 1123 with
// a literal GMT zone, e.g. "Mon, 02 Jan 2006 15:04:05 GMT".
func formatDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// tryParseTimeSpan scans values (as found on a repeated or comma-joined
// header) for the first occurrence of "directive=<digits>" and returns the
// digits as seconds. The match is a plain substring search, not a
// token-boundary search: asking for "max-age" against "fresh-max-age=10"
// matches.
func tryParseTimeSpan(values []string, directive string) (int, bool) {
	for _, value := range values {
		if seconds, ok := parseTimeSpanValue(value, directive); ok {
			return seconds, true
		}
	}
	return 0, false
}

func parseTimeSpanValue(value, directive string) (int, bool) {
	lowerValue := strings.ToLower(value)
	lowerDirective := strings.ToLower(directive)

	searchFrom := 0
	for {
		idx := strings.Index(lowerValue[searchFrom:], lowerDirective)
		if idx == -1 {
			return 0, false
		}
		pos := searchFrom + idx + len(directive)

		if seconds, ok := scanSecondsAt(value, pos); ok {
			return seconds, true
		}

		searchFrom = searchFrom + idx + 1
		if searchFrom >= len(lowerValue) {
			return 0, false
		}
	}
}

// scanSecondsAt expects, starting at pos in value: optional spaces, '=',
// optional spaces, then a non-empty run of ASCII digits.
func scanSecondsAt(value string, pos int) (int, bool) {
	i := pos
	for i < len(value) && value[i] == ' ' {
		i++
	}
	if i >= len(value) || value[i] != '=' {
		return 0, false
	}
	i++
	for i < len(value) && value[i] == ' ' {
		i++
	}

	start := i
	seconds := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		seconds = seconds*10 + int(value[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}

	return seconds, true
}

// contains reports whether token appears as a case-insensitive substring of
// any value in values.
func contains(values []string, token string) bool {
	lowerToken := strings.ToLower(token)
	for _, value := range values {
		if strings.Contains(strings.ToLower(value), lowerToken) {
			return true
		}
	}
	return false
}

// getOrderCasingNormalizedStringValues upper-cases and sorts values when
// there is more than one; a single value is returned untouched, since
// splitting on commas is the caller's job, not this helper's. Idempotent:
// normalizing an already-normalized slice returns an equal slice, and input
// order never affects the result.
func getOrderCasingNormalizedStringValues(values []string) []string {
	if len(values) <= 1 {
		out := make([]string, len(values))
		copy(out, values)
		return out
	}

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = asciiUpper(v)
	}
	sortStrings(out)
	return out
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// sortStrings is a tiny insertion sort: these slices are header-name- or
// query-key-sized (single digits to low tens of entries), where
// sort.Strings' overhead isn't worth the import for the hot key-derivation
// path. It is still O(n^2); fine at this scale.
func sortStrings(values []string) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j-1] > values[j]; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}
}
