package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dailydisco/discovery/app/feed"
)

// MetaRepository handles database operations for per-group generation records
type MetaRepository struct {
	db *DB
}

var _ feed.MetaStore = (*MetaRepository)(nil)

// NewMetaRepository creates a new meta repository
func NewMetaRepository(db *DB) *MetaRepository {
	return &MetaRepository{db: db}
}

// UpsertMeta records when a group was last generated and how many items it
// holds. Safe to call repeatedly; later calls overwrite the timestamp/count.
func (r *MetaRepository) UpsertMeta(ctx context.Context, feedName, groupKey string, generatedAt time.Time, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO day_meta (feed, group_key, generated_at, item_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (feed, group_key) DO UPDATE SET
			generated_at = excluded.generated_at,
			item_count = excluded.item_count
	`, feedName, groupKey, generatedAt, count)
	if err != nil {
		return fmt.Errorf("failed to upsert group meta: %w", err)
	}

	return nil
}

// GetMeta returns the generation record for a group, or nil when the group
// has never been generated
func (r *MetaRepository) GetMeta(ctx context.Context, feedName, groupKey string) (*feed.Meta, error) {
	var meta feed.Meta
	err := r.db.QueryRowContext(ctx, `
		SELECT feed, group_key, generated_at, item_count
		FROM day_meta
		WHERE feed = ? AND group_key = ?
	`, feedName, groupKey).Scan(&meta.Feed, &meta.GroupKey, &meta.GeneratedAt, &meta.ItemCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group meta: %w", err)
	}

	return &meta, nil
}
