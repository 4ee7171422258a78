package httpcache

import "time"

// config holds a Middleware's resolved configuration, built by applying a
// list of Options over the defaults below.
type config struct {
	maximumBodySize       int64
	sizeLimit             int64
	useCaseSensitivePaths bool
	defaultValidity       time.Duration
}

func defaultConfig() *config {
	return &config{
		maximumBodySize:       2 << 20, // 2 MiB
		sizeLimit:             0,       // advisory only; 0 means unbounded
		useCaseSensitivePaths: false,
		defaultValidity:       10 * time.Second,
	}
}

// Option configures a Middleware. Use the With* functions below to build a
// list of Options for NewMiddleware.
type Option func(*config)

// WithMaximumBodySize caps how many bytes of a single response body the
// capture stream will buffer before silently disabling buffering for that
// response.
func WithMaximumBodySize(bytes int64) Option {
	return func(c *config) { c.maximumBodySize = bytes }
}

// WithSizeLimit records an aggregate storage cap advisory in the
// Middleware's configuration. 0 means unbounded. The Middleware does not
// enforce it and does not pass it to the Storage backend; each backend
// applies only its own capacity settings.
func WithSizeLimit(bytes int64) Option {
	return func(c *config) { c.sizeLimit = bytes }
}

// WithCaseSensitivePaths, when true, keys requests by their path exactly as
// received instead of folding it to upper case.
func WithCaseSensitivePaths(caseSensitive bool) Option {
	return func(c *config) { c.useCaseSensitivePaths = caseSensitive }
}

// WithDefaultValidity sets how long a cacheable response is considered
// valid for when neither s-maxage, max-age nor Expires is present.
func WithDefaultValidity(d time.Duration) Option {
	return func(c *config) { c.defaultValidity = d }
}
