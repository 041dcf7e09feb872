// Package storage holds serialized model pipelines.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/yaroing/feedback-platform/infrastructure/retry"
	"github.com/yaroing/feedback-platform/internal/nlp"
)

// DefaultKeyPrefix namespaces model blobs in Redis.
const DefaultKeyPrefix = "nlp_models:"

// ErrBlobNotFound means no blob is stored under the key. It matches nlp.ErrSerialization,
// so a missing blob degrades to an unavailable model.
var ErrBlobNotFound = fmt.Errorf("model blob not found: %w", nlp.ErrSerialization)

// RedisBlobStore keeps model blobs as plain Redis strings without expiry.
type RedisBlobStore struct {
	client *redis.Client
	prefix string
	retry  retry.Config
}

// NewRedisBlobStore creates a store writing under prefix; an empty prefix uses
// DefaultKeyPrefix.
func NewRedisBlobStore(client *redis.Client, prefix string) *RedisBlobStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisBlobStore{
		client: client,
		prefix: prefix,
		retry:  retry.DefaultConfig(),
	}
}

// Save stores data under key, replacing any previous blob.
func (s *RedisBlobStore) Save(ctx context.Context, key string, data []byte) error {
	err := retry.Do(ctx, s.retry, func() error {
		return s.client.Set(ctx, s.prefix+key, data, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}

// Load returns the blob under key. Transient network failures are retried.
func (s *RedisBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := retry.Do(ctx, s.retry, func() error {
		var getErr error
		data, getErr = s.client.Get(ctx, s.prefix+key).Bytes()
		return getErr
	})
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("blob %q: %w", key, ErrBlobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %q: %w", key, err)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisBlobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MemoryBlobStore keeps blobs in process memory. Used by one-off CLI runs without Redis.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlobStore creates an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// Save stores a copy of data.
func (s *MemoryBlobStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Load returns a copy of the blob under key.
func (s *MemoryBlobStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, ErrBlobNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key.
func (s *MemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Ping always succeeds.
func (s *MemoryBlobStore) Ping(context.Context) error {
	return nil
}
