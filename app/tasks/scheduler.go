package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dailydisco/discovery/app/cfg"
	"github.com/dailydisco/discovery/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// tickInterval is how often the scheduler checks whether the daily trigger
// time has been crossed. Coarse on purpose: the trigger has minute precision.
const tickInterval = 30 * time.Second

type Scheduler struct {
	generator   FeedGenerator
	sweeper     DuplicateSweeper
	metaStore   feed.MetaStore
	feedConfigs []feed.FeedConfig
	generateAt  int // minutes since local midnight
	sweepDaily  bool
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu         sync.Mutex
	lastRunDay string
}

func NewScheduler(generator FeedGenerator, sweeper DuplicateSweeper,
	metaStore feed.MetaStore, feedConfigs []feed.FeedConfig) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		generator:   generator,
		sweeper:     sweeper,
		metaStore:   metaStore,
		feedConfigs: feedConfigs,
		generateAt:  cfg.GenerateAtMinutes(),
		sweepDaily:  cfg.SweepDaily,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueStartupTasks generates the groups a stopped process missed: any
// target date whose group meta is absent gets a generation task immediately,
// without waiting for the next daily trigger.
func (s *Scheduler) enqueueStartupTasks() {
	now := time.Now()

	// Today's trigger window already passed (or is covered right here), so
	// the ticker must not fire a second run for the same day.
	if now.Hour()*60+now.Minute() >= s.generateAt {
		s.mu.Lock()
		s.lastRunDay = now.Format("2006-01-02")
		s.mu.Unlock()
	}

	for _, feedConfig := range s.feedConfigs {
		for _, date := range targetDates(feedConfig, now) {
			groupKey := feedConfig.Keying.KeyFor(date)

			meta, err := s.metaStore.GetMeta(s.ctx, feedConfig.Name, groupKey)
			if err != nil {
				slog.Warn("Failed to check group meta, skipping", "feed", feedConfig.Name, "group", groupKey, "error", err)
				continue
			}
			if meta != nil {
				slog.Debug("Group already generated", "feed", feedConfig.Name, "group", groupKey)
				continue
			}

			task := NewGenerateFeedTask(feedConfig, date, s.generator)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue GenerateFeedTask", "feed", feedConfig.Name, "group", groupKey, "error", err)
			}
		}
	}
}

// tick fires the daily run once per local day, the first time the clock
// crosses the configured trigger time.
func (s *Scheduler) tick() {
	now := time.Now()
	if now.Hour()*60+now.Minute() < s.generateAt {
		return
	}

	day := now.Format("2006-01-02")

	s.mu.Lock()
	due := s.lastRunDay != day
	if due {
		s.lastRunDay = day
	}
	s.mu.Unlock()

	if !due {
		return
	}

	s.enqueueDailyTasks(now)
}

func (s *Scheduler) enqueueDailyTasks(now time.Time) {
	slog.Debug("Daily trigger fired", "feeds", len(s.feedConfigs))

	for _, feedConfig := range s.feedConfigs {
		for _, date := range targetDates(feedConfig, now) {
			task := NewGenerateFeedTask(feedConfig, date, s.generator)
			if err := s.EnqueueTask(task); err != nil {
				slog.Warn("Failed to enqueue GenerateFeedTask", "feed", feedConfig.Name, "error", err)
			}
		}
	}

	if s.sweepDaily {
		if err := s.EnqueueTask(NewDedupSweepTask(s.sweeper)); err != nil {
			slog.Warn("Failed to enqueue DedupSweepTask", "error", err)
		}
	}
}

// targetDates returns the dates a feed is generated for on a given day.
// Month-day keyed feeds also pre-generate tomorrow's group so the recurring
// feed is ready before midnight rolls over.
func targetDates(feedConfig feed.FeedConfig, now time.Time) []time.Time {
	if feedConfig.Keying == feed.KeyMonthDay {
		return []time.Time{now, now.AddDate(0, 0, 1)}
	}
	return []time.Time{now}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "feed", task.GetFeedName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
