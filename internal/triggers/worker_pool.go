package triggers

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one unit of trigger work.
type Task func(ctx context.Context) error

// WorkerPool runs tasks on a fixed set of goroutines.
type WorkerPool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger

	closeMu sync.Mutex
	closed  bool
}

func NewWorkerPool(ctx context.Context, workerCount int, logger *slog.Logger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Debug("worker pool started", "workers", wp.workerCount)
}

// Submit queues a task. It blocks while the queue is full and gives up,
// returning false, once the pool is shutting down.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.closeMu.Lock()
	closed := wp.closed
	wp.closeMu.Unlock()
	if closed {
		return false
	}

	select {
	case wp.taskQueue <- task:
		return true
	case <-wp.ctx.Done():
		wp.logger.Warn("worker pool shutting down, task rejected")
		return false
	}
}

// Wait stops accepting tasks and blocks until queued ones finish.
func (wp *WorkerPool) Wait() {
	wp.closeMu.Lock()
	if !wp.closed {
		close(wp.taskQueue)
		wp.closed = true
	}
	wp.closeMu.Unlock()

	wp.wg.Wait()
}

// Shutdown cancels running tasks and waits for the workers to exit.
func (wp *WorkerPool) Shutdown() {
	wp.cancel()
	wp.Wait()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if err := task(wp.ctx); err != nil {
				wp.logger.Error("task failed", "worker", id, "error", err)
			}
		case <-wp.ctx.Done():
			return
		}
	}
}
