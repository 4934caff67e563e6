package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailydisco/discovery/app/feed"
)

type stubGenerator struct {
	count    int
	err      error
	gotCfg   feed.FeedConfig
	gotDate  time.Time
	runCalls int
}

func (g *stubGenerator) Run(_ context.Context, cfg feed.FeedConfig, date time.Time) (int, error) {
	g.runCalls++
	g.gotCfg = cfg
	g.gotDate = date
	return g.count, g.err
}

type stubSweeper struct {
	result *feed.SweepResult
	err    error
}

func (s *stubSweeper) Run(_ context.Context) (*feed.SweepResult, error) {
	return s.result, s.err
}

func TestGenerateFeedTask_Execute(t *testing.T) {
	generator := &stubGenerator{count: 6}
	config := feed.FeedConfig{Name: "daily", Keying: feed.KeyDate, Mode: feed.ModeReplace}
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	task := NewGenerateFeedTask(config, date, generator)
	task.Start()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.runCalls != 1 {
		t.Errorf("expected one generator run, got %d", generator.runCalls)
	}
	if generator.gotCfg.Name != "daily" || !generator.gotDate.Equal(date) {
		t.Errorf("generator run with wrong arguments: %s %v", generator.gotCfg.Name, generator.gotDate)
	}
	if task.GetType() != TaskTypeGenerateFeed || task.GetFeedName() != "daily" {
		t.Errorf("unexpected task identity: %s %s", task.GetType(), task.GetFeedName())
	}
}

func TestGenerateFeedTask_PropagatesGeneratorError(t *testing.T) {
	generator := &stubGenerator{err: errors.New("store down")}
	task := NewGenerateFeedTask(feed.FeedConfig{Name: "daily"}, time.Now(), generator)
	task.Start()

	if err := task.Execute(context.Background()); err == nil {
		t.Error("expected the generator error to surface")
	}
}

func TestGenerateFeedTask_CancelledContext(t *testing.T) {
	generator := &stubGenerator{}
	task := NewGenerateFeedTask(feed.FeedConfig{Name: "daily"}, time.Now(), generator)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := task.Execute(ctx); err == nil {
		t.Error("expected a context error")
	}
	if generator.runCalls != 0 {
		t.Error("generator must not run with a cancelled context")
	}
}

func TestDedupSweepTask_Execute(t *testing.T) {
	task := NewDedupSweepTask(&stubSweeper{result: &feed.SweepResult{Deleted: 2, Remaining: 10}})
	task.Start()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.GetType() != TaskTypeDedupSweep {
		t.Errorf("unexpected task type %s", task.GetType())
	}
}

func TestDedupSweepTask_PropagatesSweeperError(t *testing.T) {
	task := NewDedupSweepTask(&stubSweeper{err: errors.New("scan failed")})
	task.Start()

	if err := task.Execute(context.Background()); err == nil {
		t.Error("expected the sweeper error to surface")
	}
}

func TestTask_RetryAccounting(t *testing.T) {
	task := NewTask(TaskTypeGenerateFeed, "daily")

	if !task.CanRetry() {
		t.Fatal("fresh task must be retryable")
	}
	for i := 0; i < task.GetMaxRetries(); i++ {
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("task must stop retrying after max retries")
	}
}

func TestTask_IDsAreUnique(t *testing.T) {
	a := NewTask(TaskTypeGenerateFeed, "daily")
	b := NewTask(TaskTypeGenerateFeed, "daily")
	if a.GetID() == b.GetID() {
		t.Error("expected distinct task IDs")
	}
}
