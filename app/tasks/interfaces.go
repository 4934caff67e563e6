package tasks

import (
	"context"
	"time"

	"github.com/dailydisco/discovery/app/feed"
)

// TaskSchedulerInterface defines the interface for background task
// scheduling. Used by the main application to manage the worker pool and the
// daily generation trigger.
// Example usage:
//
//	scheduler := NewScheduler(generator, sweeper, metaStore, feedConfigs)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// FeedGenerator runs one generation cycle for a feed and target date.
type FeedGenerator interface {
	Run(ctx context.Context, cfg feed.FeedConfig, date time.Time) (int, error)
}

// DuplicateSweeper re-scans storage and deletes later duplicates.
type DuplicateSweeper interface {
	Run(ctx context.Context) (*feed.SweepResult, error)
}
