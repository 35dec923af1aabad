package worker

import (
	"context"
	"sync"

	"github.com/replyt/replyt/internal/logger"
	"github.com/replyt/replyt/internal/repository"
	"github.com/replyt/replyt/internal/service"
)

// Runner is the durable in-process job queue. Jobs survive restarts because
// they exist as pending rows before they are enqueued: on startup the runner
// re-enqueues every pending job, and the claim inside AnalysisService.Run
// makes duplicate deliveries harmless.
type Runner struct {
	analysis *service.AnalysisService
	jobs     *repository.JobRepository
	queue    chan string
	workers  int

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewRunner creates a Runner with the given worker count and queue capacity.
func NewRunner(analysis *service.AnalysisService, jobs *repository.JobRepository, workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Runner{
		analysis: analysis,
		jobs:     jobs,
		queue:    make(chan string, queueSize),
		workers:  workers,
		stopped:  make(chan struct{}),
	}
}

// Start launches the worker pool and re-enqueues jobs that were created but
// never run before the last shutdown.
func (r *Runner) Start(ctx context.Context) error {
	pending, err := r.jobs.ListPending(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	for _, id := range pending {
		if !r.Enqueue(id) {
			logger.CtxWarn(ctx, "queue full during startup requeue, job %s stays pending", id)
		}
	}
	if len(pending) > 0 {
		logger.With(logger.Fields{
			logger.FieldComponent: "worker",
		}).WithCount(len(pending)).Info(ctx, "re-enqueued pending jobs from previous run")
	}

	return nil
}

// Enqueue hands a job id to the pool. Returns false when the queue is full;
// the job row stays pending and is picked up on the next startup requeue.
func (r *Runner) Enqueue(jobID string) bool {
	select {
	case <-r.stopped:
		return false
	default:
	}

	select {
	case r.queue <- jobID:
		return true
	default:
		return false
	}
}

// Stop drains the pool: no new jobs are accepted and Stop blocks until the
// in-flight ones finish. The queue channel is never closed, so an Enqueue
// racing Stop cannot panic; jobs still queued when the workers exit stay
// pending in the database and are requeued on the next Start.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopped)
	})
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopped:
			return
		case jobID := <-r.queue:
			if err := r.analysis.Run(ctx, jobID); err != nil {
				logger.With(logger.Fields{
					logger.FieldComponent: "worker",
					logger.FieldJobID:     jobID,
				}).Error(ctx, "worker %d: job run errored: %v", id, err)
			}
		}
	}
}
