package httpcache

import (
	"bytes"
	"encoding/gob"
	"io"
	"net/http"
	"time"
)

// EntryKind tags which payload a CachedEntry carries. CachedEntry is a
// tagged variant rather than an interface hierarchy: storage backends only
// ever need to serialize and compare one concrete shape.
type EntryKind int

const (
	// EntryKindResponse marks an entry holding a complete cached response.
	EntryKindResponse EntryKind = iota
	// EntryKindVaryByRules marks an entry holding Vary indirection rules
	// stored under a base key.
	EntryKindVaryByRules
)

// CachedEntry is the unit stored under a storage key. Exactly one of
// Response or VaryByRules is populated, selected by Kind.
type CachedEntry struct {
	Kind EntryKind

	Response    *CachedResponse
	VaryByRules *CachedVaryByRules
}

// CachedResponse is a complete cached response: status, headers, and a
// segmented, replayable copy of the body.
type CachedResponse struct {
	StatusCode int
	Header     http.Header
	Body       *SegmentedBody

	// StoredAt is the time (per Clock) at which the request that produced
	// this response arrived at the middleware (RequestContext.ResponseTime).
	// Used with the Age header computation and freshness checks.
	StoredAt time.Time
}

// CachedVaryByRules records which request header names and query keys
// distinguish variants of a resource, so a later request can compute the
// correct variant storage key. KeyPrefix is a short id minted once per
// distinct rule set and reused across re-finalizations as long as the
// normalized header/query sets don't change, so existing variant entries
// written under the old prefix remain reachable.
type CachedVaryByRules struct {
	KeyPrefix   string
	HeaderNames []string
	QueryKeys   []string
}

// DefaultSegmentSize bounds how large a single segment in a SegmentedBody
// may be, set at capture-finalization time.
const DefaultSegmentSize = 4096

// SegmentedBody is an immutable, ordered list of byte segments. Its
// NewReader method may be called any number of times, including
// concurrently, each returning an independent reader over the same bytes:
// nothing about reading one consumes or mutates the segments.
type SegmentedBody struct {
	segments [][]byte
	size     int64
}

// NewSegmentedBody chunks data into segments of at most DefaultSegmentSize
// bytes. An empty input produces a zero-segment, zero-size body.
func NewSegmentedBody(data []byte) *SegmentedBody {
	if len(data) == 0 {
		return &SegmentedBody{}
	}

	var segments [][]byte
	for len(data) > 0 {
		n := DefaultSegmentSize
		if n > len(data) {
			n = len(data)
		}
		segment := make([]byte, n)
		copy(segment, data[:n])
		segments = append(segments, segment)
		data = data[n:]
	}

	total := int64(0)
	for _, s := range segments {
		total += int64(len(s))
	}

	return &SegmentedBody{segments: segments, size: total}
}

// Size returns the total byte length across all segments.
func (b *SegmentedBody) Size() int64 {
	if b == nil {
		return 0
	}
	return b.size
}

// NewReader returns a fresh, independent reader over the body's bytes. The
// returned reader supports Read only: partial-content and range handling
// are out of scope, so there is no need for ReadAt or Seek here.
func (b *SegmentedBody) NewReader() io.Reader {
	if b == nil || len(b.segments) == 0 {
		return bytes.NewReader(nil)
	}
	readers := make([]io.Reader, len(b.segments))
	for i, seg := range b.segments {
		readers[i] = bytes.NewReader(seg)
	}
	return io.MultiReader(readers...)
}

// GobEncode and GobDecode let SegmentedBody cross a gob boundary despite its
// fields being unexported: the byte-oriented backends (disk, leveldbstore,
// redisstore, memcachestore, diskvstore) all serialize a *CachedEntry with
// encoding/gob, which only walks exported fields by default.
func (b *SegmentedBody) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(b.segments); err != nil {
		return nil, err
	}
	if err := enc.Encode(b.size); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *SegmentedBody) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b.segments); err != nil {
		return err
	}
	return dec.Decode(&b.size)
}
