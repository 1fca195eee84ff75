package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/idowu-gb/MAD-Project/server/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderTrips(t *testing.T) {
	imageURI := "file:///tmp/trips/1/view.png"
	trips := []models.Trip{
		{
			BaseModel:   models.BaseModel{ID: 1, CreatedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)},
			Departure:   "Home",
			Destination: "Work",
			ETA:         "09:00",
			Status:      models.STARTED_TRIP,
			ImageURI:    &imageURI,
		},
		{
			BaseModel:   models.BaseModel{ID: 2, CreatedAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)},
			Departure:   "Work",
			Destination: "Gym",
			ETA:         "18:30",
			Status:      models.COMPLETED_TRIP,
		},
	}

	out := new(bytes.Buffer)
	renderTrips(out, trips)

	rendered := out.String()
	assert.Contains(t, rendered, "DEPARTURE")
	assert.Contains(t, rendered, "Home")
	assert.Contains(t, rendered, "Gym")
	assert.Contains(t, rendered, imageURI)
	assert.Contains(t, rendered, "Completed")
	assert.Contains(t, rendered, "TOTAL")
}

func TestRenderNoTrips(t *testing.T) {
	out := new(bytes.Buffer)
	renderTrips(out, nil)

	assert.Contains(t, out.String(), "STATUS")
	assert.NotContains(t, out.String(), "Started")
}
