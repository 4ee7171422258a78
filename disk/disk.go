// Package disk provides a disk-backed httpcache.Storage, one file per key
// under a base directory. Cache keys contain path separators and control
// bytes that don't belong in filenames, so the key is hashed to produce
// the filename.
package disk

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gcristofol/httpcache"
)

// entryRecord is the on-disk envelope: the serialized CachedEntry plus the
// absolute expiry time, since the filesystem has no native TTL concept.
type entryRecord struct {
	Entry     httpcache.CachedEntry
	ExpiresAt time.Time
}

// Storage is a disk-backed httpcache.Storage. Every Get/Set round-trips a
// *httpcache.CachedEntry through encoding/gob, the same blob-at-the-
// boundary design every non-in-process backend in this module uses.
type Storage struct {
	baseDir string
}

// New returns a Storage rooted at baseDir, creating it if necessary.
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("disk: creating base dir: %w", err)
	}
	return &Storage{baseDir: baseDir}, nil
}

func (s *Storage) pathFor(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(s.baseDir, hex.EncodeToString(sum[:]))
}

func (s *Storage) Get(_ context.Context, key string) (*httpcache.CachedEntry, bool, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("disk: reading %q: %w", key, err)
	}

	var record entryRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return nil, false, fmt.Errorf("disk: decoding %q: %w", key, err)
	}
	if httpcache.Clock().After(record.ExpiresAt) {
		_ = os.Remove(s.pathFor(key))
		return nil, false, nil
	}

	return &record.Entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry *httpcache.CachedEntry, ttl time.Duration) error {
	record := entryRecord{Entry: *entry, ExpiresAt: httpcache.Clock().Add(ttl)}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("disk: encoding %q: %w", key, err)
	}

	tmp := s.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("disk: writing %q: %w", key, err)
	}
	return os.Rename(tmp, s.pathFor(key))
}

func (s *Storage) Delete(_ context.Context, key string) error {
	err := os.Remove(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
