package task

import (
	"context"
	"log/slog"
	"sync"
)

// ProcessFunc handles the execution of a single task pulled off the queue.
type ProcessFunc func(ctx context.Context, task Task, workerID int)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle;
// what "processing" means is supplied by the owner via ProcessFunc.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// process is invoked for every task a worker picks up
	process ProcessFunc

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is used for cancellation and shutdown signaling
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger
}

// NewWorkerPool creates a new worker pool reading from the given queue.
// If workerCount is zero or negative it defaults to 1.
func NewWorkerPool(
	taskQueue TaskQueueReader,
	workerCount int,
	process ProcessFunc,
	logger *slog.Logger,
) *WorkerPool {
	if process == nil {
		panic("process function cannot be nil")
	}

	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		process:     process,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop signals all workers to finish and waits for them to exit.
// In-flight tasks run to completion; queued tasks are left for recovery.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// worker consumes tasks from the queue until shutdown or queue close.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-p.taskQueue.GetChannel():
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.process(p.ctx, task, id)
		}
	}
}
