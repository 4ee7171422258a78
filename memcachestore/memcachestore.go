// Package memcachestore provides an httpcache.Storage backed by
// github.com/bradfitz/gomemcache. Memcached's own per-item expiration
// carries the TTL, so no expiry envelope is needed.
package memcachestore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gcristofol/httpcache"
)

const keyPrefix = "httpcache:"

// Storage is an httpcache.Storage backed by one or more memcache servers.
type Storage struct {
	client *memcache.Client
}

// New returns a Storage using the given memcache server(s), equally
// weighted, as github.com/bradfitz/gomemcache/memcache.New does.
func New(servers ...string) *Storage {
	return &Storage{client: memcache.New(servers...)}
}

// NewWithClient wraps an already-configured memcache client.
func NewWithClient(client *memcache.Client) *Storage {
	return &Storage{client: client}
}

// cacheKey hashes key to a hex name: raw cache keys contain newline and
// \x1f/\x1e bytes, which memcached rejects in keys.
func cacheKey(key string) string {
	sum := md5.Sum([]byte(key))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (s *Storage) Get(_ context.Context, key string) (*httpcache.CachedEntry, bool, error) {
	item, err := s.client.Get(cacheKey(key))
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memcachestore: get %q: %w", key, err)
	}

	var entry httpcache.CachedEntry
	if err := gob.NewDecoder(bytes.NewReader(item.Value)).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("memcachestore: decoding %q: %w", key, err)
	}
	return &entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry *httpcache.CachedEntry, ttl time.Duration) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("memcachestore: encoding %q: %w", key, err)
	}

	item := &memcache.Item{
		Key:        cacheKey(key),
		Value:      buf.Bytes(),
		Expiration: int32(ttl / time.Second),
	}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("memcachestore: set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	err := s.client.Delete(cacheKey(key))
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}
