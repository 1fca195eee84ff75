package work

import (
	"errors"
	"time"

	"github.com/idowu-gb/MAD-Project/server/logger"
	"github.com/idowu-gb/MAD-Project/server/models"
	"gorm.io/gorm"
)

// STUCK_JOB_IDLE_TIME is how long a job can stay in-progress before it's considered stuck
// e.g. its worker died mid-job
const STUCK_JOB_IDLE_TIME = 10 * time.Minute

type requeuer struct {
	idleFor      time.Duration
	sleepBackOff time.Duration
	stopChan     chan struct{}
	logg         *logger.PrefixedLogger
	errLogg      *logger.PrefixedLogger
}

func newRequeuer(idleFor time.Duration) *requeuer {
	return &requeuer{
		idleFor:      idleFor,
		sleepBackOff: time.Minute,
		stopChan:     make(chan struct{}),
		logg:         logger.Prefixed(logg, logger.Yellow, "in-progress job requeuer"),
		errLogg:      logger.Prefixed(logg, logger.Red, "in-progress job requeuer"),
	}
}

// start starts the requeuer loop that pulls jobs from 'in-progress'
// that are stuck(i.e stayed too long in-progress) and requeue them
func (r *requeuer) start() {
	go r.loop()
}

func (r *requeuer) stop() {
	r.stopChan <- struct{}{}
}

func (r *requeuer) loop() {
	var job *models.Job
	var err error

	rateLimiter := time.NewTicker(DefaultTickerDuration)
	defer rateLimiter.Stop()

	r.logg.Infof("Starting requeuer")
	for {
		select {
		case <-r.stopChan:
			r.logg.Infof("Stopping requeuer")
			return
		case <-rateLimiter.C:
			job, err = r.nextJob()

			// If no job found, sleep for 'sleepBackOff'
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rateLimiter.Reset(r.sleepBackOff)
				continue
			}

			if err != nil {
				r.errLogg.Error(err)
				rateLimiter.Reset(TickerDurationOnError)
				continue
			}

			r.requeue(job)
			rateLimiter.Reset(DefaultTickerDuration)
		}
	}
}

func (r *requeuer) nextJob() (*models.Job, error) {
	return models.LastJobLastUpdated(r.idleFor, models.IN_PROGRESS_JOB)
}

func (r *requeuer) requeue(job *models.Job) {
	jobStatus, err := models.FindJobStatus(models.ENQUEUED_JOB)
	if err != nil {
		r.errLogg.Error(err)
		return
	}

	err = job.Update(map[string]interface{}{
		"claimed":       false,
		"job_status_id": jobStatus.ID,
	})
	if err != nil {
		r.errLogg.Error(err)
		return
	}

	r.logg.Infof("job with id=%v requeued", job.ID)
}
