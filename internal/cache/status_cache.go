package cache

import (
	"time"

	"github.com/prelimth/examgate/internal/exam"
	registrationdomain "github.com/prelimth/examgate/internal/registration/domain"
)

const defaultStatusTTL = 5 * time.Second

// StatusCache stores the display availability projection. The TTL is kept
// short: the cache only smooths read bursts and must never make a stale
// FULL/AVAILABLE flag a write-path input.
type StatusCache interface {
	Get(sessionTime exam.SessionTime, examDate time.Time) (registrationdomain.SessionStatus, bool)
	Set(sessionTime exam.SessionTime, examDate time.Time, status registrationdomain.SessionStatus)
	Invalidate(sessionTime exam.SessionTime, examDate time.Time)
}

type statusCache struct {
	entries Cache[string, registrationdomain.SessionStatus]
	ttl     time.Duration
}

func NewStatusCache() StatusCache {
	return &statusCache{
		entries: NewTTLCache[string, registrationdomain.SessionStatus](),
		ttl:     defaultStatusTTL,
	}
}

func (c *statusCache) Get(sessionTime exam.SessionTime, examDate time.Time) (registrationdomain.SessionStatus, bool) {
	return c.entries.Get(statusKey(sessionTime, examDate))
}

func (c *statusCache) Set(sessionTime exam.SessionTime, examDate time.Time, status registrationdomain.SessionStatus) {
	c.entries.Set(statusKey(sessionTime, examDate), status, c.ttl)
}

func (c *statusCache) Invalidate(sessionTime exam.SessionTime, examDate time.Time) {
	c.entries.Delete(statusKey(sessionTime, examDate))
}

func statusKey(sessionTime exam.SessionTime, examDate time.Time) string {
	return string(sessionTime) + ":" + exam.NormalizeDate(examDate).Format("2006-01-02")
}
