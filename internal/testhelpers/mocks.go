// Package testhelpers provides shared test doubles for the classification service.
package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yaroing/feedback-platform/internal/database"
	"github.com/yaroing/feedback-platform/internal/domain"
	"github.com/yaroing/feedback-platform/internal/nlp"
)

// MockModelStore is an in-memory model registry table.
type MockModelStore struct {
	mu     sync.RWMutex
	models map[int64]*domain.Model
	nextID int64

	// UsageErr, when set, is returned by IncrementUsage.
	UsageErr error
	// UpdateErr, when set, is returned by UpdateTraining.
	UpdateErr error
}

// NewMockModelStore creates an empty store.
func NewMockModelStore() *MockModelStore {
	return &MockModelStore{models: make(map[int64]*domain.Model)}
}

// Put stores a copy of m, assigning an id when m.ID is zero (for test setup).
func (s *MockModelStore) Put(m domain.Model) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		s.nextID++
		m.ID = s.nextID
	} else if m.ID > s.nextID {
		s.nextID = m.ID
	}
	s.models[m.ID] = &m
	return m.ID
}

// Get returns a copy of the model with id.
func (s *MockModelStore) Get(_ context.Context, id int64) (*domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, database.ErrNotFound)
	}
	out := *m
	return &out, nil
}

// List returns copies of all models ordered by id.
func (s *MockModelStore) List(_ context.Context) ([]domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindActive returns the active model of modelType.
func (s *MockModelStore) FindActive(_ context.Context, modelType string) (*domain.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.models {
		if m.IsActive && m.ModelType == modelType {
			out := *m
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

// Create inserts m and sets its id and creation time.
func (s *MockModelStore) Create(_ context.Context, m *domain.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = time.Now()
	stored := *m
	s.models[m.ID] = &stored
	return nil
}

// UpdateTraining overwrites the stored training fields of m.
func (s *MockModelStore) UpdateTraining(_ context.Context, m *domain.Model) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.models[m.ID]
	if !ok {
		return database.ErrNotFound
	}
	stored.BlobKey = m.BlobKey
	stored.IsTrained = m.IsTrained
	stored.Accuracy = m.Accuracy
	stored.Precision = m.Precision
	stored.Recall = m.Recall
	stored.F1Score = m.F1Score
	stored.TrainingDataSize = m.TrainingDataSize
	stored.LastTrained = m.LastTrained
	return nil
}

// Activate marks id active and every other model of its type inactive.
func (s *MockModelStore) Activate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.models[id]
	if !ok {
		return database.ErrNotFound
	}
	for _, m := range s.models {
		if m.ModelType == target.ModelType {
			m.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

// IncrementUsage bumps the usage counter of id.
func (s *MockModelStore) IncrementUsage(_ context.Context, id int64, at time.Time) error {
	if s.UsageErr != nil {
		return s.UsageErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return database.ErrNotFound
	}
	m.UsageCount++
	m.LastUsed = &at
	return nil
}

// ActiveCount returns the number of active models of modelType.
func (s *MockModelStore) ActiveCount(modelType string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.models {
		if m.IsActive && m.ModelType == modelType {
			n++
		}
	}
	return n
}

// MockBlobStore is an in-memory blob store that counts loads.
type MockBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	loads atomic.Int64

	// LoadDelay slows every Load, widening race windows in tests.
	LoadDelay time.Duration
	// OnLoaded, when set, runs after Load has read a blob and before it returns.
	OnLoaded func(key string)
}

// NewMockBlobStore creates an empty store.
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{blobs: make(map[string][]byte)}
}

// Save stores a copy of data.
func (b *MockBlobStore) Save(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Load returns the blob under key.
func (b *MockBlobStore) Load(_ context.Context, key string) ([]byte, error) {
	b.loads.Add(1)
	if b.LoadDelay > 0 {
		time.Sleep(b.LoadDelay)
	}
	b.mu.RLock()
	data, ok := b.blobs[key]
	data = append([]byte(nil), data...)
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("blob %q: %w", key, nlp.ErrSerialization)
	}
	if b.OnLoaded != nil {
		b.OnLoaded(key)
	}
	return data, nil
}

// Delete removes key.
func (b *MockBlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

// Has reports whether key is stored.
func (b *MockBlobStore) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blobs[key]
	return ok
}

// Len returns the number of stored blobs.
func (b *MockBlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}

// Loads returns how many times Load was called.
func (b *MockBlobStore) Loads() int64 {
	return b.loads.Load()
}

// SeparableExamples returns a small labelled set with disjoint vocabularies per category.
func SeparableExamples() []nlp.Example {
	return []nlp.Example{
		{Text: "eau potable robinet puits", Category: "Eau"},
		{Text: "puits sec pas d eau", Category: "Eau"},
		{Text: "robinet cassé eau sale", Category: "Eau"},
		{Text: "latrines puits robinet eau", Category: "Eau"},
		{Text: "eau trouble au puits", Category: "Eau"},
		{Text: "riz farine ration distribution", Category: "Vivres"},
		{Text: "ration de riz manquante", Category: "Vivres"},
		{Text: "distribution farine retardée", Category: "Vivres"},
		{Text: "riz ration huile farine", Category: "Vivres"},
		{Text: "huile et riz en distribution", Category: "Vivres"},
	}
}
