// Package diskvstore provides an httpcache.Storage backed by
// github.com/peterbourgon/diskv: an in-memory LRU cache in front of
// per-key files on disk, which suits a cache whose backing store should
// survive a restart without a database.
package diskvstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/gcristofol/httpcache"
	"github.com/peterbourgon/diskv"
)

type entryRecord struct {
	Entry     httpcache.CachedEntry
	ExpiresAt time.Time
}

// Storage is an httpcache.Storage backed by a diskv store.
type Storage struct {
	d *diskv.Diskv
}

// New returns a Storage rooted at basePath, with a 100MB in-memory cache
// layer in front of the filesystem.
func New(basePath string) *Storage {
	return &Storage{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 100 * 1024 * 1024,
	})}
}

// NewWithDiskv wraps an already-configured diskv store.
func NewWithDiskv(d *diskv.Diskv) *Storage {
	return &Storage{d: d}
}

func keyToFilename(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *Storage) Get(_ context.Context, key string) (*httpcache.CachedEntry, bool, error) {
	filename := keyToFilename(key)
	if !s.d.Has(filename) {
		return nil, false, nil
	}

	stream, err := s.d.ReadStream(filename, true)
	if err != nil {
		return nil, false, fmt.Errorf("diskvstore: reading %q: %w", key, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, false, fmt.Errorf("diskvstore: reading %q: %w", key, err)
	}

	var record entryRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return nil, false, fmt.Errorf("diskvstore: decoding %q: %w", key, err)
	}
	if httpcache.Clock().After(record.ExpiresAt) {
		_ = s.d.Erase(filename)
		return nil, false, nil
	}

	return &record.Entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry *httpcache.CachedEntry, ttl time.Duration) error {
	record := entryRecord{Entry: *entry, ExpiresAt: httpcache.Clock().Add(ttl)}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("diskvstore: encoding %q: %w", key, err)
	}

	if err := s.d.WriteStream(keyToFilename(key), &buf, true); err != nil {
		return fmt.Errorf("diskvstore: writing %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	return s.d.Erase(keyToFilename(key))
}
