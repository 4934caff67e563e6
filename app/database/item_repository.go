package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dailydisco/discovery/app/feed"
)

// ItemRepository handles database operations for generated feed items
type ItemRepository struct {
	db *DB
}

var _ feed.ItemStore = (*ItemRepository)(nil)

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, feed, group_key, category, title, description, summary,
	image_url, links, metadata, provider_id, event_year, created_at`

// InsertBatch inserts the cycle's accepted items in a single transaction.
// Rows colliding on (feed, group_key, title_key) are dropped by the unique
// index backstop rather than failing the batch.
func (r *ItemRepository) InsertBatch(ctx context.Context, feedName string, items []feed.Item) error {
	return r.storeBatch(ctx, feedName, items, `
		INSERT INTO feed_items (
			feed, group_key, category, title, title_key, description, summary,
			image_url, links, metadata, provider_id, event_year, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed, group_key, title_key) DO NOTHING
	`)
}

// UpsertBatch inserts in a single transaction, replacing rows that collide
// on any uniqueness key. The on-this-day feed relies on this to tolerate
// re-running generation for a date whose event set overlaps across runs.
func (r *ItemRepository) UpsertBatch(ctx context.Context, feedName string, items []feed.Item) error {
	return r.storeBatch(ctx, feedName, items, `
		INSERT OR REPLACE INTO feed_items (
			feed, group_key, category, title, title_key, description, summary,
			image_url, links, metadata, provider_id, event_year, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
}

func (r *ItemRepository) storeBatch(ctx context.Context, feedName string, items []feed.Item, query string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		linksJSON, err := json.Marshal(item.Links)
		if err != nil {
			return fmt.Errorf("failed to marshal links: %w", err)
		}
		metadataJSON, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			feedName, item.GroupKey, string(item.Category), item.Title,
			feed.NormalizeTitle(item.Title), item.Description, item.Summary,
			item.ImageURL, string(linksJSON), string(metadataJSON),
			item.ProviderID, item.EventYear, item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to store item %q: %w", item.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// DeleteGroup removes all items for a group. Used only in replace mode,
// before the new batch is inserted.
func (r *ItemRepository) DeleteGroup(ctx context.Context, feedName, groupKey string) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM feed_items WHERE feed = ? AND group_key = ?`, feedName, groupKey)
	if err != nil {
		return 0, fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// GetItems returns a group's items in insertion order
func (r *ItemRepository) GetItems(ctx context.Context, feedName, groupKey string) ([]feed.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM feed_items
		WHERE feed = ? AND group_key = ?
		ORDER BY created_at ASC, id ASC
	`, feedName, groupKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItemsForIndex returns all items for a feed except the given group,
// used to seed the per-cycle uniqueness index. An empty excludeGroup
// returns everything.
func (r *ItemRepository) GetItemsForIndex(ctx context.Context, feedName, excludeGroup string) ([]feed.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM feed_items
		WHERE feed = ? AND group_key != ?
		ORDER BY created_at ASC, id ASC
	`, feedName, excludeGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for index: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetAllItems returns every stored item oldest first, for the dedup sweep
func (r *ItemRepository) GetAllItems(ctx context.Context) ([]feed.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM feed_items
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// DeleteByIDs removes the given items in one transaction
func (r *ItemRepository) DeleteByIDs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleted := 0
	// Chunked to stay under the SQLite bound-variable limit.
	for start := 0; start < len(ids); start += 500 {
		end := min(start+500, len(ids))
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM feed_items WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to delete items: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted += int(rowsAffected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit deletions: %w", err)
	}

	return deleted, nil
}

// GetGroupKeys returns the sorted group keys known for a feed
func (r *ItemRepository) GetGroupKeys(ctx context.Context, feedName string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT group_key FROM feed_items WHERE feed = ? ORDER BY group_key ASC
	`, feedName)
	if err != nil {
		return nil, fmt.Errorf("failed to get group keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan group key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group keys: %w", err)
	}

	return keys, nil
}

// GetGroupCount returns the number of items stored for a group
func (r *ItemRepository) GetGroupCount(ctx context.Context, feedName, groupKey string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feed_items WHERE feed = ? AND group_key = ?`,
		feedName, groupKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get group count: %w", err)
	}
	return count, nil
}

// CountItems returns the total number of stored items
func (r *ItemRepository) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feed_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func scanItems(rows *sql.Rows) ([]feed.Item, error) {
	var items []feed.Item
	for rows.Next() {
		var item feed.Item
		var category, linksJSON, metadataJSON string

		err := rows.Scan(
			&item.ID, &item.Feed, &item.GroupKey, &category, &item.Title,
			&item.Description, &item.Summary, &item.ImageURL,
			&linksJSON, &metadataJSON, &item.ProviderID, &item.EventYear,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}

		item.Category = feed.Category(category)
		if err := json.Unmarshal([]byte(linksJSON), &item.Links); err != nil {
			return nil, fmt.Errorf("failed to unmarshal links: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &item.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}
