// Package leveldbstore provides an httpcache.Storage backed by
// github.com/syndtr/goleveldb: an ordered, on-disk LSM store suited to a
// durable local cache. Leveldb has no TTL concept, so entries carry an
// expiry envelope checked lazily on Get.
package leveldbstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/gcristofol/httpcache"
	"github.com/syndtr/goleveldb/leveldb"
)

type entryRecord struct {
	Entry     httpcache.CachedEntry
	ExpiresAt time.Time
}

// Storage is an httpcache.Storage backed by a leveldb database.
type Storage struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) a leveldb database at path.
func Open(path string) (*Storage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: opening %q: %w", path, err)
	}
	return &Storage{db: db}, nil
}

// NewWithDB wraps an already-open leveldb database.
func NewWithDB(db *leveldb.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(_ context.Context, key string) (*httpcache.CachedEntry, bool, error) {
	data, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("leveldbstore: get %q: %w", key, err)
	}

	var record entryRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&record); err != nil {
		return nil, false, fmt.Errorf("leveldbstore: decoding %q: %w", key, err)
	}
	if httpcache.Clock().After(record.ExpiresAt) {
		_ = s.db.Delete([]byte(key), nil)
		return nil, false, nil
	}

	return &record.Entry, true, nil
}

func (s *Storage) Set(_ context.Context, key string, entry *httpcache.CachedEntry, ttl time.Duration) error {
	record := entryRecord{Entry: *entry, ExpiresAt: httpcache.Clock().Add(ttl)}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(record); err != nil {
		return fmt.Errorf("leveldbstore: encoding %q: %w", key, err)
	}

	if err := s.db.Put([]byte(key), buf.Bytes(), nil); err != nil {
		return fmt.Errorf("leveldbstore: put %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	return s.db.Delete([]byte(key), nil)
}
