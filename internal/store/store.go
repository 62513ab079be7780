package store

import (
	"context"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
)

// Store defines the interface for search record storage.
// Implementations: in-memory, Redis and Cassandra.
type Store interface {
	// CreateSearch stores a new search record
	CreateSearch(ctx context.Context, rec *types.SearchRecord) error

	// GetSearch retrieves a search record by ID
	GetSearch(ctx context.Context, id string) (*types.SearchRecord, error)

	// UpdateSearch replaces an existing search record
	UpdateSearch(ctx context.Context, rec *types.SearchRecord) error

	// DeleteSearch deletes a search record
	DeleteSearch(ctx context.Context, id string) error

	// ListSearches returns up to limit records, newest first
	ListSearches(ctx context.Context, limit int) ([]*types.SearchRecord, error)
}

// Errors
var (
	ErrSearchNotFound = &StoreError{Message: "search not found"}
	ErrSearchExists   = &StoreError{Message: "search already exists"}
)

// StoreError represents a storage error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
