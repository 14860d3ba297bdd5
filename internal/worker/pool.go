package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Priya8975/notification-hub/internal/engine"
)

// Handler processes a single delivery job.
type Handler interface {
	Deliver(ctx context.Context, job engine.DeliveryJob) Outcome
}

// Pool runs a fixed number of workers reading from a buffered channel.
type Pool struct {
	numWorkers int
	jobs       chan engine.DeliveryJob
	handler    Handler
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewPool(numWorkers int, handler Handler, logger *slog.Logger) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan engine.DeliveryJob, numWorkers*2),
		handler:    handler,
		logger:     logger,
	}
}

// Start launches the workers. ctx is passed to every delivery; workers
// exit once Stop has closed the channel and it is drained.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Submit hands job to a worker, blocking while the buffer is full. It
// returns false if ctx ends first.
func (p *Pool) Submit(ctx context.Context, job engine.DeliveryJob) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop closes the job channel and waits for in-flight jobs to finish.
// Submit must not be called afterwards.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		p.handler.Deliver(ctx, job)
	}
}
