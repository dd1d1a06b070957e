// internal/tasks/inprocess.go
package tasks

import (
	"context"
	"fmt"
	"sync"

	"hris-cloud/internal/common/logger"
	"hris-cloud/internal/common/observability"
)

// InProcess runs tasks on a fixed pool of goroutines fed by a bounded queue.
// Queued tasks are lost if the process dies.
type InProcess struct {
	handler HandlerFunc
	workers int
	queue   chan ScoreTask
	obs     *observability.Observability
	logger  logger.Logger

	mu      sync.RWMutex
	closed  bool
	started sync.Once
	wg      sync.WaitGroup
}

func NewInProcess(handler HandlerFunc, workers, queueSize int, obs *observability.Observability, log logger.Logger) *InProcess {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	return &InProcess{
		handler: handler,
		workers: workers,
		queue:   make(chan ScoreTask, queueSize),
		obs:     obs,
		logger:  logger.Component(log, "tasks.inprocess"),
	}
}

// Start launches the workers. Tasks run under ctx; cancelling it does not
// stop the workers, Shutdown does.
func (p *InProcess) Start(ctx context.Context) {
	p.started.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.work(ctx, i)
		}
		p.logger.Info("task workers started", map[string]interface{}{"workers": p.workers, "queueSize": cap(p.queue)})
	})
}

func (p *InProcess) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for task := range p.queue {
		p.execute(ctx, id, task)
	}
}

func (p *InProcess) execute(ctx context.Context, id int, task ScoreTask) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", map[string]interface{}{
				"worker":      id,
				"applicantId": task.ApplicantID,
				"panic":       fmt.Sprint(r),
			})
		}
	}()

	if err := run(ctx, p.obs, p.handler, task); err != nil {
		p.logger.Error("task failed", map[string]interface{}{
			"worker":      id,
			"applicantId": task.ApplicantID,
			"error":       err,
		})
	}
}

// Dispatch enqueues task, blocking while the queue is full until ctx is done.
func (p *InProcess) Dispatch(ctx context.Context, task ScoreTask) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}

	select {
	case p.queue <- task:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue task for %s: %w", task.ApplicantID, ctx.Err())
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (p *InProcess) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("task workers drained", nil)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain task queue: %w", ctx.Err())
	}
}
