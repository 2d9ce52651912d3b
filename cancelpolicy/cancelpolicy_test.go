package cancelpolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNeverCancel(t *testing.T) {
	now := time.Now()
	assert.False(t, NeverCancel{}.ShouldCancel(now.Add(-72*time.Hour), now))
}

func TestEODCancelBeforeClose(t *testing.T) {
	p := DefaultEODCancel()
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 19, 59, 0, 0, time.UTC)
	assert.False(t, p.ShouldCancel(created, now))
}

func TestEODCancelAtOrAfterClose(t *testing.T) {
	p := DefaultEODCancel()
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	assert.True(t, p.ShouldCancel(created, now))
}

func TestEODCancelOnLaterCalendarDate(t *testing.T) {
	p := DefaultEODCancel()
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 5, 0, 1, 0, 0, time.UTC)
	assert.True(t, p.ShouldCancel(created, now))
}

func TestEODCancelNextSameDayNeverCancels(t *testing.T) {
	p := DefaultEODCancelNext()
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)
	assert.False(t, p.ShouldCancel(created, now))
}

func TestEODCancelNextWaitsForOpenHour(t *testing.T) {
	p := DefaultEODCancelNext()
	created := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	beforeOpen := time.Date(2024, 3, 5, 13, 59, 0, 0, time.UTC)
	assert.False(t, p.ShouldCancel(created, beforeOpen))

	atOpen := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	assert.True(t, p.ShouldCancel(created, atOpen))
}
