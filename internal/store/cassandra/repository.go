package cassandra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/store"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/types"
	"github.com/distrubuted-game-mechanic/bruteforce/pkg/logger"
)

const searchColumns = `id, status, plan, depth, volume, explored, start_tic,
	sequence, target, best_value, elapsed_ms, created_at, finished_at`

// Repository implements store.Store using Cassandra
type Repository struct {
	client  *Client
	logger  *logger.Logger
	timeout time.Duration
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new Cassandra-based search repository
func NewRepository(client *Client, log *logger.Logger, timeout time.Duration) *Repository {
	return &Repository{
		client:  client,
		logger:  log,
		timeout: timeout,
	}
}

// queryContext applies the configured timeout when ctx has no deadline.
func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	queryCtx, cancel := ctx, context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		queryCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	// Check if context is already cancelled
	select {
	case <-queryCtx.Done():
		cancel()
		return nil, nil, fmt.Errorf("context cancelled: %w", queryCtx.Err())
	default:
	}
	return queryCtx, cancel, nil
}

// CreateSearch inserts a new search record
func (r *Repository) CreateSearch(ctx context.Context, rec *types.SearchRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.searches (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		IF NOT EXISTS`, r.client.Keyspace(), searchColumns)

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	applied, err := r.client.Session().Query(query, values(rec)...).WithContext(queryCtx).ScanCAS(nil)
	if err != nil {
		r.logger.Error("Failed to create search in Cassandra",
			logger.F("search_id", rec.ID),
			logger.Err(err))
		return fmt.Errorf("failed to create search: %w", err)
	}

	if !applied {
		return store.ErrSearchExists
	}

	r.logger.Debug("Search created", logger.F("search_id", rec.ID))
	return nil
}

// GetSearch retrieves a search record by ID
func (r *Repository) GetSearch(ctx context.Context, id string) (*types.SearchRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.searches
		WHERE id = ?`, searchColumns, r.client.Keyspace())

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var row searchRow
	err = r.client.Session().Query(query, id).WithContext(queryCtx).Scan(row.dest()...)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, store.ErrSearchNotFound
		}
		r.logger.Error("Failed to get search from Cassandra",
			logger.F("search_id", id),
			logger.Err(err))
		return nil, fmt.Errorf("failed to get search: %w", err)
	}

	return row.record(), nil
}

// UpdateSearch replaces the mutable columns of an existing record
func (r *Repository) UpdateSearch(ctx context.Context, rec *types.SearchRecord) error {
	query := fmt.Sprintf(`
		UPDATE %s.searches
		SET status = ?, explored = ?, sequence = ?, best_value = ?,
			elapsed_ms = ?, finished_at = ?
		WHERE id = ?
		IF EXISTS`, r.client.Keyspace())

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	applied, err := r.client.Session().Query(query,
		rec.Status,
		int64(rec.Explored),
		rec.Sequence,
		rec.BestValue,
		rec.ElapsedMs,
		rec.FinishedAt,
		rec.ID,
	).WithContext(queryCtx).ScanCAS(nil)
	if err != nil {
		r.logger.Error("Failed to update search in Cassandra",
			logger.F("search_id", rec.ID),
			logger.Err(err))
		return fmt.Errorf("failed to update search: %w", err)
	}

	if !applied {
		return store.ErrSearchNotFound
	}

	r.logger.Debug("Search updated", logger.F("search_id", rec.ID), logger.F("status", rec.Status))
	return nil
}

// DeleteSearch deletes a search record
func (r *Repository) DeleteSearch(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s.searches WHERE id = ?`, r.client.Keyspace())

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := r.client.Session().Query(query, id).WithContext(queryCtx).Exec(); err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return nil
}

// ListSearches returns up to limit records, newest first. The table is
// partitioned by id, so ordering happens after the scan.
func (r *Repository) ListSearches(ctx context.Context, limit int) ([]*types.SearchRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s.searches`, searchColumns, r.client.Keyspace())

	queryCtx, cancel, err := r.queryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	iter := r.client.Session().Query(query).WithContext(queryCtx).Iter()

	var records []*types.SearchRecord
	var row searchRow
	for iter.Scan(row.dest()...) {
		records = append(records, row.record())
		row = searchRow{}
	}

	if err := iter.Close(); err != nil {
		r.logger.Error("Failed to list searches from Cassandra", logger.Err(err))
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}

	return newestFirst(records, limit), nil
}

func values(rec *types.SearchRecord) []any {
	return []any{
		rec.ID,
		rec.Status,
		[]byte(rec.Plan),
		rec.Depth,
		int64(rec.Volume),
		int64(rec.Explored),
		rec.StartTic,
		rec.Sequence,
		rec.Target,
		rec.BestValue,
		rec.ElapsedMs,
		rec.CreatedAt,
		rec.FinishedAt,
	}
}

// searchRow mirrors the table's column types.
type searchRow struct {
	id         string
	status     string
	plan       []byte
	depth      int
	volume     int64
	explored   int64
	startTic   int
	sequence   []string
	target     string
	bestValue  string
	elapsedMs  int64
	createdAt  time.Time
	finishedAt time.Time
}

func (row *searchRow) dest() []any {
	return []any{
		&row.id,
		&row.status,
		&row.plan,
		&row.depth,
		&row.volume,
		&row.explored,
		&row.startTic,
		&row.sequence,
		&row.target,
		&row.bestValue,
		&row.elapsedMs,
		&row.createdAt,
		&row.finishedAt,
	}
}

func (row *searchRow) record() *types.SearchRecord {
	rec := &types.SearchRecord{
		ID:        row.id,
		Status:    row.status,
		Plan:      row.plan,
		Depth:     row.depth,
		Volume:    uint64(row.volume),
		Explored:  uint64(row.explored),
		StartTic:  row.startTic,
		Sequence:  row.sequence,
		Target:    row.target,
		BestValue: row.bestValue,
		ElapsedMs: row.elapsedMs,
		CreatedAt: row.createdAt,
	}
	if !row.finishedAt.IsZero() {
		t := row.finishedAt
		rec.FinishedAt = &t
	}
	return rec
}

func newestFirst(records []*types.SearchRecord, limit int) []*types.SearchRecord {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
