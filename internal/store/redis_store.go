package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/config"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
)

// searchIndexKey is a sorted set of search IDs scored by creation time.
const searchIndexKey = "searches"

// RedisStore implements the Store interface using Redis.
// Records are stored as JSON with a TTL for automatic cleanup.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // Time-to-live for records (0 = no expiration)
}

// NewRedisStore connects to Redis and pings it.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// CreateSearch stores a new search record in Redis.
func (s *RedisStore) CreateSearch(ctx context.Context, rec *types.SearchRecord) error {
	key := searchKey(rec.ID)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal search: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store search: %w", err)
	}
	if !ok {
		return ErrSearchExists
	}

	score := float64(rec.CreatedAt.UnixNano())
	if err := s.client.ZAdd(ctx, searchIndexKey, redis.Z{Score: score, Member: rec.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index search: %w", err)
	}

	return nil
}

// GetSearch retrieves a search record from Redis.
func (s *RedisStore) GetSearch(ctx context.Context, id string) (*types.SearchRecord, error) {
	data, err := s.client.Get(ctx, searchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSearchNotFound
		}
		return nil, fmt.Errorf("failed to get search: %w", err)
	}

	var rec types.SearchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search: %w", err)
	}

	return &rec, nil
}

// UpdateSearch replaces an existing search record in Redis.
func (s *RedisStore) UpdateSearch(ctx context.Context, rec *types.SearchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal search: %w", err)
	}

	// SetXX only writes when the key exists and refreshes the TTL
	ok, err := s.client.SetXX(ctx, searchKey(rec.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to update search: %w", err)
	}
	if !ok {
		return ErrSearchNotFound
	}

	return nil
}

// DeleteSearch deletes a search record from Redis.
func (s *RedisStore) DeleteSearch(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, searchKey(id))
	pipe.ZRem(ctx, searchIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return nil
}

// ListSearches returns up to limit records, newest first. Index entries
// whose record has expired are pruned.
func (s *RedisStore) ListSearches(ctx context.Context, limit int) ([]*types.SearchRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.client.ZRevRange(ctx, searchIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}

	out := make([]*types.SearchRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.GetSearch(ctx, id)
		if errors.Is(err, ErrSearchNotFound) {
			if err := s.client.ZRem(ctx, searchIndexKey, id).Err(); err != nil {
				return nil, fmt.Errorf("failed to prune search index: %w", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, nil
}

// searchKey generates a Redis key for a search record.
func searchKey(id string) string {
	return fmt.Sprintf("search:%s", id)
}
