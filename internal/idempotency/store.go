// Package idempotency replays the stored response of a mutating request that
// is retried with the same Idempotency-Key header.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// Record is a stored response. Pending marks a key whose first request is
// still being served. RequestHash identifies the request body the response
// belongs to.
type Record struct {
	Pending     bool   `json:"pending,omitempty"`
	RequestHash string `json:"request_hash,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Store persists records by key. Reserve must be atomic: of two concurrent
// callers with the same key, exactly one gets true.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (Record, bool, error)
	Complete(ctx context.Context, key string, record Record) error
	Release(ctx context.Context, key string) error
}

var ErrUnexpectedRecord = errors.New("idempotency: unexpected value in store")

// MemoryStore keeps records in a process-local go-cache.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore keeps completed records for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (s *MemoryStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	// Add fails when the key is already present and unexpired.
	if err := s.cache.Add(key, Record{Pending: true}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	v, found := s.cache.Get(key)
	if !found {
		return Record{}, false, nil
	}
	record, ok := v.(Record)
	if !ok {
		return Record{}, false, ErrUnexpectedRecord
	}
	return record, true, nil
}

func (s *MemoryStore) Complete(ctx context.Context, key string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Pending = false
	s.cache.Set(key, record, s.ttl)
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}
