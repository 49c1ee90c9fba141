package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/gmsas95/ocrdesk-cli/internal/metrics"
	"github.com/gmsas95/ocrdesk-cli/internal/ocr"
)

const resultKeyPrefix = "result:"

// CacheResult stores an OCR result under its document id with a TTL, so
// repeated views don't refetch from the backend.
func (s *Store) CacheResult(result *ocr.Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return s.badger.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(resultKeyPrefix+result.DocumentID), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// CachedResult loads a cached result, nil when absent or expired
func (s *Store) CachedResult(documentID string) (*ocr.Result, error) {
	var result ocr.Result
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(resultKeyPrefix + documentID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordCacheMiss()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordCacheHit()
	return &result, nil
}

// DropCachedResult removes a cached result, e.g. after a reprocess
func (s *Store) DropCachedResult(documentID string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(resultKeyPrefix + documentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// RunCacheGC runs one badger value-log GC cycle. badger returns an error
// when there was nothing to rewrite; that is not a failure.
func (s *Store) RunCacheGC() error {
	err := s.badger.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}
