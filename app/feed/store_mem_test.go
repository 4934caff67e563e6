package feed

import (
	"context"
	"errors"
	"sort"
	"time"
)

// memStore is an in-memory ItemStore used by generator and sweeper tests.
// It mirrors the storage-level behavior of the SQL repository, including
// the drop-on-title-conflict backstop and the event-year upsert key.
type memStore struct {
	items     []Item
	nextID    int64
	failWrite bool
}

func newMemStore() *memStore {
	return &memStore{nextID: 1}
}

func (m *memStore) InsertBatch(_ context.Context, feedName string, items []Item) error {
	if m.failWrite {
		return errors.New("storage unavailable")
	}
	for _, item := range items {
		if m.hasTitleConflict(feedName, item.GroupKey, item.Title) {
			continue
		}
		item.ID = m.nextID
		m.nextID++
		item.Feed = feedName
		m.items = append(m.items, item)
	}
	return nil
}

func (m *memStore) UpsertBatch(_ context.Context, feedName string, items []Item) error {
	if m.failWrite {
		return errors.New("storage unavailable")
	}
	for _, item := range items {
		replaced := false
		for i := range m.items {
			existing := &m.items[i]
			if existing.Feed == feedName && existing.GroupKey == item.GroupKey &&
				existing.EventYear != "" && existing.EventYear == item.EventYear &&
				existing.Category == item.Category {
				id := existing.ID
				*existing = item
				existing.ID = id
				existing.Feed = feedName
				replaced = true
				break
			}
		}
		if !replaced {
			item.ID = m.nextID
			m.nextID++
			item.Feed = feedName
			m.items = append(m.items, item)
		}
	}
	return nil
}

func (m *memStore) DeleteGroup(_ context.Context, feedName, groupKey string) (int, error) {
	if m.failWrite {
		return 0, errors.New("storage unavailable")
	}
	kept := m.items[:0]
	deleted := 0
	for _, item := range m.items {
		if item.Feed == feedName && item.GroupKey == groupKey {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	return deleted, nil
}

func (m *memStore) GetItems(_ context.Context, feedName, groupKey string) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if item.Feed == feedName && item.GroupKey == groupKey {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) GetItemsForIndex(_ context.Context, feedName, excludeGroup string) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if item.Feed != feedName {
			continue
		}
		if excludeGroup != "" && item.GroupKey == excludeGroup {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *memStore) GetAllItems(_ context.Context) ([]Item, error) {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) DeleteByIDs(_ context.Context, ids []int64) (int, error) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := m.items[:0]
	deleted := 0
	for _, item := range m.items {
		if _, ok := drop[item.ID]; ok {
			deleted++
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	return deleted, nil
}

func (m *memStore) GetGroupKeys(_ context.Context, feedName string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, item := range m.items {
		if item.Feed != feedName {
			continue
		}
		if _, ok := seen[item.GroupKey]; ok {
			continue
		}
		seen[item.GroupKey] = struct{}{}
		keys = append(keys, item.GroupKey)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) GetGroupCount(_ context.Context, feedName, groupKey string) (int, error) {
	count := 0
	for _, item := range m.items {
		if item.Feed == feedName && item.GroupKey == groupKey {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CountItems(_ context.Context) (int, error) {
	return len(m.items), nil
}

func (m *memStore) hasTitleConflict(feedName, groupKey, title string) bool {
	key := NormalizeTitle(title)
	for _, item := range m.items {
		if item.Feed == feedName && item.GroupKey == groupKey && NormalizeTitle(item.Title) == key {
			return true
		}
	}
	return false
}

type memMeta struct {
	metas map[string]*Meta
}

func newMemMeta() *memMeta {
	return &memMeta{metas: make(map[string]*Meta)}
}

func (m *memMeta) UpsertMeta(_ context.Context, feedName, groupKey string, generatedAt time.Time, count int) error {
	m.metas[feedName+"/"+groupKey] = &Meta{
		Feed:        feedName,
		GroupKey:    groupKey,
		GeneratedAt: generatedAt,
		ItemCount:   count,
	}
	return nil
}

func (m *memMeta) GetMeta(_ context.Context, feedName, groupKey string) (*Meta, error) {
	meta, ok := m.metas[feedName+"/"+groupKey]
	if !ok {
		return nil, nil
	}
	return meta, nil
}
