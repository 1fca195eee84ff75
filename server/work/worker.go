package work

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/server/models"
	"gorm.io/gorm"
)

const MAX_FAILS = 4

var (
	DefaultTickerDuration = 5 * time.Millisecond
	TickerDurationOnError = 10 * time.Millisecond

	ErrDuplicateHandler = errors.New("handler with provided name already mapped")

	logg = logger.NewLogger()
)

type JobParams struct {
	Name    string
	Handler string
	Args    map[string]interface{}
}

type Handler func(map[string]interface{}) error

type worker struct {
	id            string
	handlers      map[string]Handler
	stopChan      chan struct{}
	sleepBackoffs []time.Duration
	logg          *logger.PrefixedLogger
	errLogg       *logger.PrefixedLogger
}

func newWorker(sleepBackoffs []time.Duration) *worker {
	id := uuid.NewString()[:8]
	name := fmt.Sprintf("worker %v", id)

	return &worker{
		id:            id,
		handlers:      make(map[string]Handler),
		stopChan:      make(chan struct{}),
		sleepBackoffs: sleepBackoffs,
		logg:          logger.Prefixed(logg, logger.Yellow, name),
		errLogg:       logger.Prefixed(logg, logger.Red, name),
	}
}

// registerHandler binds a name to a job handler.
func (w *worker) registerHandler(name string, handler Handler) error {
	if _, ok := w.handlers[name]; ok {
		return ErrDuplicateHandler
	}

	w.handlers[name] = handler

	return nil
}

// start starts the worker loop that pulls jobs from the queue & process them
func (w *worker) start() {
	go w.loop()
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop() {
	var consecutiveNoJobs int
	var currentJob *models.Job
	var err error

	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	w.logg.Infof("Starting worker")
	for {
		select {
		case <-w.stopChan:
			w.logg.Infof("Stopping worker")
			return
		case <-rateLimiter.C:
			currentJob, err = models.FirstJob(models.ENQUEUED_JOB, false)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// If no job found, slowly increase the wait time between each job fetch
					// using 'sleepBackoffs'. To reduce db hit when it's not necessary.
					idx := consecutiveNoJobs
					if idx >= len(w.sleepBackoffs) {
						idx = len(w.sleepBackoffs) - 1
					}
					consecutiveNoJobs++
					rateLimiter.Reset(w.sleepBackoffs[idx])
					continue
				}

				w.errLogg.Error(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			claimed, err := models.ClaimJob(currentJob.ID)
			if err != nil {
				w.errLogg.Error(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			if !claimed {
				rateLimiter.Reset(DefaultTickerDuration)
				continue
			}

			w.logg.Infof("claimed job with id=%v, name=%v", currentJob.ID, currentJob.Name)

			w.processJob(currentJob)
			rateLimiter.Reset(DefaultTickerDuration)
			consecutiveNoJobs = 0
		}
	}
}

func (w *worker) processJob(job *models.Job) {
	handler, ok := w.handlers[job.Handler]
	if !ok {
		w.determineFailedJobFate(job, fmt.Errorf("no handler registered for '%v'", job.Handler))
		return
	}

	args := make(map[string]interface{})
	if err := json.Unmarshal([]byte(job.Args), &args); err != nil {
		w.determineFailedJobFate(job, err)
		return
	}

	if err := handler(args); err != nil {
		w.determineFailedJobFate(job, err)
		return
	}

	w.markJobAsSuccessful(job)
}

func (w *worker) determineFailedJobFate(job *models.Job, runError error) {
	var jobStatus *models.JobStatus
	var err error

	w.errLogg.Errorf("job with id=%v failed: %v", job.ID, runError)
	job.Fails++

	// For job with Fails >= MAX_FAILS mark as DEAD else requeue the job to be retried
	if job.Fails >= MAX_FAILS {
		jobStatus, err = models.FindJobStatus(models.DEAD_JOB)
	} else {
		jobStatus, err = models.FindJobStatus(models.ENQUEUED_JOB)
	}

	if err != nil {
		w.errLogg.Error(err)
		return
	}

	// Unclaim job and update it with the necessary fail information
	err = job.Update(map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
		"fails":         job.Fails,
		"last_error":    runError.Error(),
	})
	if err != nil {
		w.errLogg.Error(err)
	}
	w.logg.Infof("job with id=%v completed with status=%v", job.ID, jobStatus.Name)
}

func (w *worker) markJobAsSuccessful(job *models.Job) {
	jobStatus, err := models.FindJobStatus(models.SUCCESSFUL_JOB)
	if err != nil {
		w.errLogg.Error(err)
		return
	}

	err = job.Update(map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
	})
	if err != nil {
		w.errLogg.Error(err)
	}
	w.logg.Infof("job with id=%v completed with status=%v", job.ID, jobStatus.Name)
}
