package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCronScheduler(t *testing.T) {
	testCases := []struct {
		timeZone         string
		expectedLocation string
	}{
		{"America/Toronto", "America/Toronto"},
		{"UTC", "UTC"},
		{"Not/AZone", time.UTC.String()},
	}

	for _, tcase := range testCases {
		t.Run(tcase.timeZone, func(t *testing.T) {
			scheduler := NewCronScheduler(tcase.timeZone)
			assert.Equal(t, tcase.expectedLocation, scheduler.Location().String())
		})
	}
}
