// Package redisstore provides an httpcache.Storage backed by
// github.com/redis/go-redis/v9. Redis's native per-key EXPIRE maps
// directly onto the Storage contract's Set(key, entry, ttl), so this
// backend doesn't need the expiry envelope the filesystem- and
// LSM-backed stores carry.
package redisstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/gcristofol/httpcache"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces keys in a shared Redis instance.
const keyPrefix = "httpcache:"

// Storage is an httpcache.Storage backed by a Redis server.
type Storage struct {
	client *redis.Client
}

// New wraps an existing *redis.Client.
func New(client *redis.Client) *Storage {
	return &Storage{client: client}
}

// NewFromAddr dials addr (e.g. "localhost:6379") with default options.
func NewFromAddr(addr string) *Storage {
	return &Storage{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Get(ctx context.Context, key string) (*httpcache.CachedEntry, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: get %q: %w", key, err)
	}

	var entry httpcache.CachedEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("redisstore: decoding %q: %w", key, err)
	}
	return &entry, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, entry *httpcache.CachedEntry, ttl time.Duration) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("redisstore: encoding %q: %w", key, err)
	}

	if err := s.client.Set(ctx, keyPrefix+key, buf.Bytes(), ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
