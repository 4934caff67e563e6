package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Generator runs one generation cycle: build the uniqueness index from
// storage, run each source in sequence with per-source failure isolation,
// fold acceptances back into the index, then persist the batch through the
// item store. Source failures never fail a cycle; only persistence does.
type Generator struct {
	items ItemStore
	meta  MetaStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGenerator(items ItemStore, meta MetaStore) *Generator {
	return &Generator{
		items: items,
		meta:  meta,
		locks: make(map[string]*sync.Mutex),
	}
}

// Run executes one cycle for the given feed and target date and returns the
// number of items accepted and persisted. A cycle in which every source
// contributed zero items is a success with count 0.
func (g *Generator) Run(ctx context.Context, cfg FeedConfig, date time.Time) (int, error) {
	groupKey := cfg.Keying.KeyFor(date)

	// Two concurrent cycles for the same group could interleave the
	// delete/insert of replace mode, so cycles serialize per group.
	lock := g.groupLock(cfg.Name + "/" + groupKey)
	lock.Lock()
	defer lock.Unlock()

	slog.Info("Generation cycle started", "feed", cfg.Name, "group", groupKey, "mode", string(cfg.Mode))
	startTime := time.Now()

	excludeGroup := ""
	if cfg.Mode == ModeReplace {
		excludeGroup = groupKey
	}

	existing, err := g.items.GetItemsForIndex(ctx, cfg.Name, excludeGroup)
	if err != nil {
		return 0, fmt.Errorf("failed to build uniqueness index: %w", err)
	}
	index := BuildIndex(existing)

	sc := SourceContext{GroupKey: groupKey, Date: date, Index: index}

	var accepted []Item
	for _, source := range cfg.Sources {
		items, err := g.runSource(ctx, source, sc)
		if err != nil {
			slog.Warn("Source failed, contributing zero items",
				"feed", cfg.Name, "category", string(source.Category()), "error", err)
			continue
		}

		count := 0
		for _, item := range items {
			if index.HasTitle(item.Title) || index.HasProviderID(item.ProviderID) {
				slog.Debug("Dropping duplicate candidate",
					"category", string(item.Category), "title", item.Title)
				continue
			}

			item.Feed = cfg.Name
			item.GroupKey = groupKey
			item.CreatedAt = time.Now().UTC()

			index.Record(item)
			accepted = append(accepted, item)
			count++
		}

		slog.Debug("Source completed", "category", string(source.Category()), "items", count)
	}

	if err := g.persist(ctx, cfg, groupKey, accepted); err != nil {
		return 0, err
	}

	groupCount, err := g.items.GetGroupCount(ctx, cfg.Name, groupKey)
	if err != nil {
		return 0, fmt.Errorf("failed to count group items: %w", err)
	}

	if err := g.meta.UpsertMeta(ctx, cfg.Name, groupKey, time.Now().UTC(), groupCount); err != nil {
		return 0, fmt.Errorf("failed to update group meta: %w", err)
	}

	slog.Info("Generation cycle completed",
		"feed", cfg.Name,
		"group", groupKey,
		"accepted", len(accepted),
		"group_total", groupCount,
		"duration", time.Since(startTime))

	return len(accepted), nil
}

// runSource invokes a single source with panic containment, so one
// misbehaving provider adapter cannot take down the cycle.
func (g *Generator) runSource(ctx context.Context, source Source, sc SourceContext) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()

	return source.Fetch(ctx, sc)
}

func (g *Generator) persist(ctx context.Context, cfg FeedConfig, groupKey string, accepted []Item) error {
	if cfg.Mode == ModeReplace {
		deleted, err := g.items.DeleteGroup(ctx, cfg.Name, groupKey)
		if err != nil {
			return fmt.Errorf("failed to delete group %s: %w", groupKey, err)
		}
		if deleted > 0 {
			slog.Debug("Replaced existing group", "feed", cfg.Name, "group", groupKey, "deleted", deleted)
		}

		if len(accepted) == 0 {
			return nil
		}
		if err := g.items.InsertBatch(ctx, cfg.Name, accepted); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		return nil
	}

	if len(accepted) == 0 {
		return nil
	}
	if err := g.items.UpsertBatch(ctx, cfg.Name, accepted); err != nil {
		return fmt.Errorf("failed to upsert batch: %w", err)
	}
	return nil
}

func (g *Generator) groupLock(key string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[key] = lock
	}
	return lock
}
