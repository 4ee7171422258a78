package httpcache

import "errors"

// Sentinel errors returned by the cache. Callers compare with errors.Is.
var (
	// ErrNotFound names a storage miss. The Storage backends in this module
	// do not return it: they report a miss as found == false with a nil error.
	ErrNotFound = errors.New("httpcache: key not found in storage")

	// ErrCaptureAlreadyInstalled is the value InstallCapture panics with when
	// a RequestContext already has a capture stream attached. Installing a
	// second capture on the same request is a programming error.
	ErrCaptureAlreadyInstalled = errors.New("httpcache: capture stream already installed for this request")

	// ErrBufferingDisabled is returned by CaptureStream.Finalize when the
	// response exceeded maximumBodySize and buffering was disabled.
	ErrBufferingDisabled = errors.New("httpcache: buffering disabled, response body was not captured")
)
