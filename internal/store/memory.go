package store

import (
	"context"
	"sort"
	"sync"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
)

// MemoryStore keeps search records in a map. Records are copied on the way
// in and out so callers never share them.
type MemoryStore struct {
	mu       sync.RWMutex
	searches map[string]*types.SearchRecord
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		searches: make(map[string]*types.SearchRecord),
	}
}

// CreateSearch stores a new search record
func (s *MemoryStore) CreateSearch(ctx context.Context, rec *types.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.searches[rec.ID]; exists {
		return ErrSearchExists
	}

	s.searches[rec.ID] = clone(rec)
	return nil
}

// GetSearch retrieves a search record by ID
func (s *MemoryStore) GetSearch(ctx context.Context, id string) (*types.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.searches[id]
	if !exists {
		return nil, ErrSearchNotFound
	}

	return clone(rec), nil
}

// UpdateSearch replaces an existing search record
func (s *MemoryStore) UpdateSearch(ctx context.Context, rec *types.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.searches[rec.ID]; !exists {
		return ErrSearchNotFound
	}

	s.searches[rec.ID] = clone(rec)
	return nil
}

// DeleteSearch deletes a search record
func (s *MemoryStore) DeleteSearch(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.searches, id)
	return nil
}

// ListSearches returns up to limit records, newest first
func (s *MemoryStore) ListSearches(ctx context.Context, limit int) ([]*types.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.SearchRecord, 0, len(s.searches))
	for _, rec := range s.searches {
		out = append(out, clone(rec))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(rec *types.SearchRecord) *types.SearchRecord {
	c := *rec
	c.Sequence = append([]string(nil), rec.Sequence...)
	c.Plan = append([]byte(nil), rec.Plan...)
	if rec.FinishedAt != nil {
		t := *rec.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
