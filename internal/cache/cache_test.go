package cache

import (
	"testing"
	"time"

	capacitydomain "github.com/prelimth/examgate/internal/capacity/domain"
	"github.com/prelimth/examgate/internal/exam"
	registrationdomain "github.com/prelimth/examgate/internal/registration/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 50*time.Millisecond)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestStatusCacheKeysOnNormalizedDate(t *testing.T) {
	c := NewStatusCache()
	examDay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	c.Set(exam.SessionMorning, examDay, registrationdomain.SessionStatus{Status: capacitydomain.StatusFull})

	// Same calendar date, different time of day.
	later := examDay.Add(13 * time.Hour)
	status, ok := c.Get(exam.SessionMorning, later)
	assert.True(t, ok)
	assert.Equal(t, capacitydomain.StatusFull, status.Status)

	_, ok = c.Get(exam.SessionAfternoon, examDay)
	assert.False(t, ok)

	c.Invalidate(exam.SessionMorning, examDay)
	_, ok = c.Get(exam.SessionMorning, examDay)
	assert.False(t, ok)
}
