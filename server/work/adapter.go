package work

import (
	"errors"
	"fmt"

	"github.com/go-co-op/gocron"
	"github.com/idowu-gb/MAD-Project/server/cron"
	"github.com/idowu-gb/MAD-Project/server/models"
)

const MAX_CONCURRENCY = 2

// WorkerPoolAdapter runs db-backed jobs, now via Perform or on a cron schedule
// via PeriodicallyPerform
type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *workerPool
}

func NewWorkerAdapter(timeZone string) (*WorkerPoolAdapter, error) {
	pool, err := newWorkerPool(MAX_CONCURRENCY)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZone),
		pool:          pool,
	}, nil
}

// Start starts the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Start() {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	adapter.pool.start()
}

// Stop stops the cron scheduler & worker pool
func (adapter *WorkerPoolAdapter) Stop() {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	adapter.pool.stop()
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available.
// A job with the same name already waiting or in progress makes this a no-op.
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	err := adapter.pool.enqueue(job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job.Name, err)
	}

	logg.Infof("Enqueued job: %v", job.Name)
	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					logg.Error(err)
				}
			},
			job,
		)
	return err
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) error {
	return adapter.cronScheduler.RemoveByTag(jobName)
}
