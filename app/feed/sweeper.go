package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper is the maintenance pass that re-scans all stored items oldest
// first, keeps the first occurrence of each normalized title and each
// provider ID within a feed, and deletes the later duplicates. Running it
// on an already-clean table deletes nothing.
type Sweeper struct {
	items ItemStore
}

func NewSweeper(items ItemStore) *Sweeper {
	return &Sweeper{items: items}
}

type SweepResult struct {
	Deleted   int `json:"deleted"`
	Remaining int `json:"remaining"`
}

func (s *Sweeper) Run(ctx context.Context) (*SweepResult, error) {
	startTime := time.Now()

	all, err := s.items.GetAllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}

	seenTitles := make(map[string]struct{})
	seenProviderIDs := make(map[string]struct{})
	var duplicateIDs []int64

	for _, item := range all {
		titleKey := item.Feed + "/" + NormalizeTitle(item.Title)
		_, titleSeen := seenTitles[titleKey]

		providerSeen := false
		providerKey := ""
		if item.ProviderID != "" {
			providerKey = item.Feed + "/" + item.ProviderID
			_, providerSeen = seenProviderIDs[providerKey]
		}

		if titleSeen || providerSeen {
			duplicateIDs = append(duplicateIDs, item.ID)
			continue
		}

		seenTitles[titleKey] = struct{}{}
		if providerKey != "" {
			seenProviderIDs[providerKey] = struct{}{}
		}
	}

	deleted := 0
	if len(duplicateIDs) > 0 {
		deleted, err = s.items.DeleteByIDs(ctx, duplicateIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to delete duplicates: %w", err)
		}
	}

	remaining, err := s.items.CountItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count remaining items: %w", err)
	}

	slog.Info("Dedup sweep completed",
		"scanned", len(all),
		"deleted", deleted,
		"remaining", remaining,
		"duration", time.Since(startTime))

	return &SweepResult{Deleted: deleted, Remaining: remaining}, nil
}
