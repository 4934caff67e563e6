package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

type DedupSweepTask struct {
	Task
	sweeper DuplicateSweeper
}

func NewDedupSweepTask(sweeper DuplicateSweeper) *DedupSweepTask {
	return &DedupSweepTask{
		Task:    NewTask(TaskTypeDedupSweep, ""),
		sweeper: sweeper,
	}
}

func (t *DedupSweepTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to run dedup sweep: %w", err)
	}

	slog.Info("Task completed",
		"type", "DedupSweep",
		"duration", t.GetDuration(),
		"deleted", result.Deleted,
		"remaining", result.Remaining)

	return nil
}
