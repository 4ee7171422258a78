package httpcache

import "time"

// Clock is the source of "now" used throughout the middleware: response
// timestamps, cached-entry age, and TTL computation all read it instead of
// calling time.Now directly, so tests can pin it.
var Clock = func() time.Time {
	return time.Now().UTC()
}
