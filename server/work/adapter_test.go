package work

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerform(t *testing.T) {
	models.InitializeTestDb()

	workerPool, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)
	outputBuffer := new(bytes.Buffer)

	// Register job function
	writeToBuffer := func(args map[string]interface{}) error {
		_, err := outputBuffer.WriteString("Hello " + args["name"].(string))
		return err
	}
	assert.Nil(t, workerPool.Register("write_to_buffer", writeToBuffer))
	assert.Equal(t, ErrDuplicateHandler, workerPool.Register("write_to_buffer", writeToBuffer))

	err = workerPool.Perform(JobParams{
		Name:    "write_to_buffer",
		Handler: "write_to_buffer",
		Args:    map[string]interface{}{"name": "Bob"},
	})
	assert.Nil(t, err)
	assert.Empty(t, outputBuffer.String(), "Nothing should run before the pool starts")

	workerPool.Start()

	// Wait for job to be processed
	time.Sleep(2 * time.Second)

	workerPool.Stop()

	assert.Equal(t, "Hello Bob", outputBuffer.String(), "Expected job to write to outputBuffer")

	job, err := models.FindJobByName("write_to_buffer")
	require.Nil(t, err)
	assert.Equal(t, models.SUCCESSFUL_JOB, job.JobStatus.Name)
	assert.False(t, job.Claimed)
}

func TestPerformDuplicateIsIgnored(t *testing.T) {
	models.InitializeTestDb()

	workerPool, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	job := JobParams{Name: "notify_1", Handler: "notify", Args: map[string]interface{}{}}
	assert.Nil(t, workerPool.Perform(job))
	assert.Nil(t, workerPool.Perform(job), "A duplicate job should not be an error")

	assert.NotNil(t, workerPool.Perform(JobParams{Name: " ", Handler: "notify"}))
}

func TestFailingJobEndsUpDead(t *testing.T) {
	models.InitializeTestDb()

	workerPool, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	var runs int32
	err = workerPool.Register("always_fails", func(map[string]interface{}) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("twilio is down")
	})
	require.Nil(t, err)

	require.Nil(t, workerPool.Perform(JobParams{Name: "always_fails", Handler: "always_fails"}))

	workerPool.Start()
	time.Sleep(2 * time.Second)
	workerPool.Stop()

	job, err := models.FindJobByName("always_fails")
	require.Nil(t, err)
	assert.Equal(t, models.DEAD_JOB, job.JobStatus.Name)
	assert.Equal(t, MAX_FAILS, job.Fails)
	assert.Equal(t, "twilio is down", job.LastError)
	assert.Equal(t, int32(MAX_FAILS), atomic.LoadInt32(&runs))
}

func TestPeriodicallyPerformRejectsBadCron(t *testing.T) {
	workerPool, err := NewWorkerAdapter("UTC")
	require.Nil(t, err)

	err = workerPool.PeriodicallyPerform("not a cron expression", JobParams{Name: "backup", Handler: "backup"})
	assert.NotNil(t, err)
}
