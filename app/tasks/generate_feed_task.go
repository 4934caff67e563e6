package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dailydisco/discovery/app/feed"
)

type GenerateFeedTask struct {
	Task
	FeedConfig feed.FeedConfig
	Date       time.Time
	generator  FeedGenerator
}

func NewGenerateFeedTask(feedConfig feed.FeedConfig, date time.Time, generator FeedGenerator) *GenerateFeedTask {
	return &GenerateFeedTask{
		Task:       NewTask(TaskTypeGenerateFeed, feedConfig.Name),
		FeedConfig: feedConfig,
		Date:       date,
		generator:  generator,
	}
}

func (t *GenerateFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	accepted, err := t.generator.Run(ctx, t.FeedConfig, t.Date)
	if err != nil {
		return fmt.Errorf("failed to generate feed: %w", err)
	}

	slog.Info("Task completed",
		"type", "GenerateFeed",
		"feed", t.FeedName,
		"group", t.FeedConfig.Keying.KeyFor(t.Date),
		"duration", t.GetDuration(),
		"accepted", accepted)

	return nil
}
