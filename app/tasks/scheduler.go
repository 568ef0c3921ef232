package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/listing-comb/app/cfg"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize     = 32
	taskTimeout   = 30 * time.Minute
	maxRetryDelay = 30 * time.Second
)

type Scheduler struct {
	crawler     AgencyCrawler
	interval    time.Duration
	workerCount int
	retryDelay  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler runs one worker. Crawls are serialized by the service, so more
// workers would only wait on each other.
func NewScheduler(crawler AgencyCrawler) TaskSchedulerInterface {
	cfg := cfg.Get()
	return newScheduler(crawler, time.Duration(cfg.SchedulerInterval)*time.Second, 1)
}

func newScheduler(crawler AgencyCrawler, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		crawler:     crawler,
		interval:    interval,
		workerCount: workerCount,
		retryDelay:  time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.interval <= 0 {
		slog.Debug("Scheduled crawls disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueCrawl()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueCrawl()
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers. The queue is left
// open so late retries cannot panic.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueCrawl() {
	task := NewCrawlAllAgenciesTask(s.crawler)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue CrawlAgenciesTask", "error", err)
		return
	}
	slog.Debug("Scheduled crawl enqueued", "id", task.GetID())
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay * time.Duration(1<<uint(task.GetRetryCount()-1))
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "target", task.GetTarget(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}

		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
		}
	}()
}
