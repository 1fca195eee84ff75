package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const JOBS_TABLE = "jobs"

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type Job struct {
	BaseModel
	Fails       int        `json:"fails"`
	Name        string     `json:"name" gorm:"index"`
	Handler     string     `json:"handler"`
	Args        string     `json:"args"`
	LastError   string     `json:"last_error"`
	Claimed     bool       `json:"claimed" gorm:"default:false"`
	JobStatusID uint       `json:"job_status_id"`
	JobStatus   *JobStatus `json:"status"`
}

func (job *Job) Update(data map[string]interface{}) error {
	return db.Model(&Job{}).Where("id = ?", job.ID).Updates(data).Error
}

// ClaimJob marks the job as claimed & in-progress. It reports false if another
// worker claimed the job first.
func ClaimJob(id uint) (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", id, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
	})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// CreateUniqueJobByName enqueues a job, unless a job with the same name
// is already enqueued or in-progress, in which case ErrDuplicateJob is returned.
func CreateUniqueJobByName(name string, handler string, args string) error {
	queuedJobStatuses := []JobStatus{}
	err := db.Where("name IN ?", []string{ENQUEUED_JOB, IN_PROGRESS_JOB}).Find(&queuedJobStatuses).Error
	if err != nil {
		return err
	}

	var enqueuedJobStatus JobStatus
	statusIDs := []uint{}
	for _, jobStatus := range queuedJobStatuses {
		statusIDs = append(statusIDs, jobStatus.ID)
		if jobStatus.Name == ENQUEUED_JOB {
			enqueuedJobStatus = jobStatus
		}
	}

	err = db.Where("name = ? AND job_status_id IN ?", name, statusIDs).First(&Job{}).Error
	if err == nil {
		return ErrDuplicateJob
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		JobStatusID: enqueuedJobStatus.ID,
	}).Error
}

// FirstJob returns the oldest job with 'status' & 'claimed'
func FirstJob(status string, claimed bool) (*Job, error) {
	job := Job{}
	err := db.Joins("INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ?", status).
		Where("jobs.claimed = ?", claimed).
		First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// FindJobByName returns the most recent job called 'name', with its status
func FindJobByName(name string) (*Job, error) {
	job := Job{}
	err := db.Preload("JobStatus").Where("name = ?", name).Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// LastJobLastUpdated returns the last job of 'status' that hasn't been updated
// in the last 'idleFor' i.e. last record where job.updated_at + 'idleFor' <= 'now'.
func LastJobLastUpdated(idleFor time.Duration, status string) (*Job, error) {
	jobStatus, err := FindJobStatus(status)
	if err != nil {
		return nil, err
	}

	job := Job{}
	err = db.Where("job_status_id = ? AND updated_at <= ?", jobStatus.ID, time.Now().Add(-idleFor)).
		Last(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}
