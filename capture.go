package httpcache

import (
	"io"
	"sync"

	stream "gopkg.in/djherbis/stream.v1"
)

// CaptureStream is a write-through filter in front of an upstream response
// body writer: every write reaches the writer first, then is mirrored into
// a spooled buffer, up to maximumBodySize. Once that bound would be
// exceeded, buffering is silently disabled and only the write-through
// continues.
type CaptureStream struct {
	next            io.Writer
	maximumBodySize int64

	mu               sync.Mutex
	spool            *stream.Stream
	length           int64
	bufferingEnabled bool
	finalized        bool
}

// NewCaptureStream wraps next, spooling up to maximumBodySize bytes. A
// non-positive maximumBodySize disables buffering from the start.
func NewCaptureStream(next io.Writer, maximumBodySize int64) (*CaptureStream, error) {
	cs := &CaptureStream{
		next:            next,
		maximumBodySize: maximumBodySize,
	}

	if maximumBodySize <= 0 {
		return cs, nil
	}

	spool, err := stream.NewStream("httpcache-capture", stream.NewMemFS())
	if err != nil {
		return nil, err
	}
	cs.spool = spool
	cs.bufferingEnabled = true
	return cs, nil
}

// Write forwards p to the underlying writer first; only on success is p
// mirrored into the buffer. A forwarding failure is returned as-is and
// aborts nothing already emitted downstream.
func (cs *CaptureStream) Write(p []byte) (int, error) {
	n, err := cs.next.Write(p)
	if err != nil {
		return n, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.bufferingEnabled && n > 0 {
		if cs.length+int64(n) > cs.maximumBodySize {
			cs.disableBufferingLocked()
		} else if _, werr := cs.spool.Write(p[:n]); werr != nil {
			cs.disableBufferingLocked()
		} else {
			cs.length += int64(n)
		}
	}

	return n, nil
}

// Length returns the number of bytes buffered so far.
func (cs *CaptureStream) Length() int64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.length
}

// BufferingEnabled reports whether the capture is still mirroring writes
// into the buffer.
func (cs *CaptureStream) BufferingEnabled() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.bufferingEnabled
}

// DisableBuffering abandons any buffered content. Forwarded writes already
// reached the downstream writer and are unaffected.
func (cs *CaptureStream) DisableBuffering() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.disableBufferingLocked()
}

func (cs *CaptureStream) disableBufferingLocked() {
	if !cs.bufferingEnabled {
		return
	}
	cs.bufferingEnabled = false
	cs.length = 0
	if cs.spool != nil {
		cs.spool.Close()
		cs.spool.Remove()
		cs.spool = nil
	}
}

// Finalize closes the spool and returns its contents as an immutable
// SegmentedBody. Once called, the CaptureStream is spent: a second call
// returns ErrBufferingDisabled.
func (cs *CaptureStream) Finalize() (*SegmentedBody, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.bufferingEnabled || cs.finalized {
		return nil, ErrBufferingDisabled
	}
	cs.finalized = true

	if err := cs.spool.Close(); err != nil {
		cs.spool.Remove()
		cs.spool = nil
		return nil, err
	}

	r, err := cs.spool.NextReader()
	if err != nil {
		cs.spool.Remove()
		cs.spool = nil
		return nil, err
	}

	data, err := io.ReadAll(r)
	r.Close()
	cs.spool.Remove()
	cs.spool = nil
	if err != nil {
		return nil, err
	}

	return NewSegmentedBody(data), nil
}
